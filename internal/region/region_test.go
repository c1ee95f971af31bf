package region

import "testing"

func TestParseRegion(t *testing.T) {
	tests := []struct {
		raw  string
		want Region
		str  string
	}{
		{"中国|0|广东省|深圳市|电信", Region{Country: "中国", Province: "广东省", City: "深圳市", ISP: "电信"}, "中国 广东省 深圳市"},
		{"中国|0|北京|北京市|联通", Region{Country: "中国", Province: "北京", City: "北京市", ISP: "联通"}, "中国 北京 北京市"},
		{"中国|0|上海|上海|0", Region{Country: "中国", Province: "上海", City: "上海"}, "中国 上海"},
		{"0|0|0|内网IP|内网IP", Region{City: "内网IP", ISP: "内网IP"}, "内网IP"},
		{"美国", Region{Country: "美国"}, "美国"},
	}
	for _, tt := range tests {
		got := parseRegion(tt.raw)
		if got != tt.want || got.String() != tt.str {
			t.Errorf("parseRegion(%q) = %+v %q", tt.raw, got, got.String())
		}
	}
}

func TestUnconfiguredSearcher(t *testing.T) {
	s, err := Open("")
	if s != nil || err != nil {
		t.Fatalf("Open(\"\") = %v, %v", s, err)
	}
	if _, ok := s.Lookup("1.2.3.4"); ok {
		t.Fatal("nil searcher answered")
	}
	s.Close()
	if _, err := Open("/nonexistent/ip2region.xdb"); err == nil {
		t.Fatal("missing file accepted")
	}
}
