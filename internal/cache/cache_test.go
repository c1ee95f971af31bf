package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/plutoqz/ruoyi-f/internal/penalty"
)

func TestPenaltyKeyStable(t *testing.T) {
	d := penalty.Details{Name: "A", Area: 100, LandType: penalty.LandCultivated}
	k1 := PenaltyKey("非法转让土地", d)
	if !strings.HasPrefix(k1, "penalty:") || len(k1) != len("penalty:")+40 {
		t.Fatalf("key = %s", k1)
	}
	if PenaltyKey("非法转让土地", d) != k1 {
		t.Fatal("key not stable")
	}
	d.Area = 101
	if PenaltyKey("非法转让土地", d) == k1 {
		t.Fatal("key ignores area")
	}
}

func TestNilCacheIsPassThrough(t *testing.T) {
	var c *Cache
	r, hit := c.Evaluate(context.Background(), "非法占用土地(未批先建)", penalty.Details{Area: 100})
	if hit || r.Fine != 20000 {
		t.Fatalf("result = %+v hit=%v", r, hit)
	}
	ok, err := New(nil, 0).FirstSeen(context.Background(), "cases", []byte("x"), time.Second)
	if !ok || err != nil {
		t.Fatalf("FirstSeen = %v, %v", ok, err)
	}
}

func TestBloomPositions(t *testing.T) {
	a := bloomPositions([]byte("payload"), bloomBits, bloomHashes)
	b := bloomPositions([]byte("payload"), bloomBits, bloomHashes)
	if len(a) != bloomHashes {
		t.Fatalf("positions = %v", a)
	}
	for i := range a {
		if a[i] != b[i] || a[i] < 0 || a[i] >= bloomBits {
			t.Fatalf("positions = %v / %v", a, b)
		}
	}
}
