package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	return out.String(), err
}

func TestPointIdentity(t *testing.T) {
	out, err := run(t, "", "point", "--from", "wgs84", "--to", "EPSG:4326", "116.4", "39.9")
	if err != nil {
		t.Fatal(err)
	}
	if out != "116.40000000 39.90000000\n" {
		t.Fatalf("out = %q", out)
	}
	if _, err := run(t, "", "point", "--to", "utm", "1", "2"); err == nil {
		t.Fatal("unknown crs accepted")
	}
}

func TestTransformFromStdin(t *testing.T) {
	out, err := run(t, `{"type":"Point","coordinates":[2.35,48.85]}`, "transform", "--from", "wgs84", "--to", "gcj02")
	if err != nil {
		t.Fatal(err)
	}
	// 境外坐标不偏移
	if !strings.Contains(out, "[2.35,48.85]") {
		t.Fatalf("out = %q", out)
	}
}

func TestEvaluateAndRules(t *testing.T) {
	out, err := run(t, "", "evaluate", "--type", "非法占用土地(未批先建)", "--area", "100", "--name", "A")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "【A】") || !strings.Contains(out, "人民币 20,000 元整") {
		t.Fatalf("report = %q", out)
	}
	if _, err := run(t, "", "evaluate", "--type", "乱倒垃圾"); err == nil {
		t.Fatal("unknown violation type returned no error")
	}
	out, err = run(t, "", "rules")
	if err != nil || strings.Count(out, "\n") != 7 {
		t.Fatalf("rules = %q, %v", out, err)
	}
}

func TestParseFloats(t *testing.T) {
	v, err := parseFloats("108.9, 34.3,108.91,34.31", 4)
	if err != nil || v[3] != 34.31 {
		t.Fatalf("v = %v, %v", v, err)
	}
	if _, err := parseFloats("1,2", 4); err == nil {
		t.Fatal("short list accepted")
	}
	if _, err := run(t, "", "landuse", "--bbox", "2,2,1,1"); err == nil {
		t.Fatal("inverted bbox accepted")
	}
}
