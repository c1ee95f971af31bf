package penalty

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

const occupation = "非法占用土地(未批先建)"

func TestRuleTableInvariants(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatal(err)
	}
	if len(Rules()) != 7 || len(Labels()) != 7 {
		t.Fatalf("rules=%d labels=%d", len(Rules()), len(Labels()))
	}
	for i, label := range Labels() {
		r, ok := Lookup(label)
		if !ok || r.ID != Rules()[i].ID {
			t.Fatalf("label %q resolves to %q", label, r.ID)
		}
	}
}

func TestScheduleShape(t *testing.T) {
	tests := []struct {
		name    string
		s       Schedule
		want    Shape
		wantErr bool
	}{
		{"per sqm", Schedule{FinePerSqm: perSqm(1, 2)}, ShapePerSqm, false},
		{"flat zero", Schedule{Fine: flat(0)}, ShapeFlat, false},
		{"income", Schedule{FinePercentageOfIllegalIncome: &Range{10, 20}}, ShapeIncomePercent, false},
		{"reclamation", Schedule{FineAsMultipleOfReclamationFee: &Range{1, 2}}, ShapeReclamationMultiple, false},
		{"empty", Schedule{}, ShapeNone, true},
		{"two", Schedule{FinePerSqm: perSqm(1, 2), Fine: flat(5)}, ShapeNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.s.Shape()
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Fatalf("Shape() = %v, %v", got, err)
			}
		})
	}
}

func TestOccupationSeverityThresholds(t *testing.T) {
	tests := []struct {
		mu       float64
		landType string
		want     Severity
	}{
		{4, LandBasicFarmland, Minor},
		{5, LandBasicFarmland, Moderate},
		{6, LandBasicFarmland, Moderate},
		{10, LandBasicFarmland, Severe},
		{11, LandBasicFarmland, Severe},
		{9, LandCultivated, Minor},
		{15, LandCultivated, Moderate},
		{25, LandCultivated, Severe},
		{19, "", Minor},
		{30, LandOther, Moderate},
		{41, LandOther, Severe},
	}
	for _, tt := range tests {
		res := Evaluate(occupation, Details{Name: "A", Area: tt.mu * MuToSqm, LandType: tt.landType})
		if res.Severity != tt.want {
			t.Errorf("%v mu on %q: severity %s, want %s", tt.mu, tt.landType, res.Severity, tt.want)
		}
	}
}

func TestPerSqmFine(t *testing.T) {
	res := Evaluate(occupation, Details{Name: "A", Area: 3333.35, LandType: LandBasicFarmland})
	if res.Severity != Moderate || res.RuleID != "illegal_land_occupation" {
		t.Fatalf("severity=%s rule=%s", res.Severity, res.RuleID)
	}
	if res.Fine != 1500008 {
		t.Fatalf("fine = %v", res.Fine)
	}
	if res.FineText != "人民币 1,500,008 元整" {
		t.Fatalf("fine text = %q", res.FineText)
	}
	if !strings.Contains(res.Report, "3. 处以罚款：人民币 1,500,008 元整。") {
		t.Fatalf("report misses fine clause:\n%s", res.Report)
	}
}

func TestUnknownViolation(t *testing.T) {
	res := Evaluate("乱倒垃圾", Details{Name: "X"})
	if res.Fine != 0 || res.FineText != "错误" || res.RuleID != "" {
		t.Fatalf("result = %+v", res)
	}
	if res.Report != "【X】\n错误: 未能找到针对“乱倒垃圾”的有效处罚规则。" {
		t.Fatalf("report = %q", res.Report)
	}
}

func TestSymbolicFines(t *testing.T) {
	tests := []struct {
		label string
		d     Details
		sev   Severity
		text  string
	}{
		{"非法转让土地", Details{IllegalIncome: 1000}, Minor, "按违法所得的 10% ~ 20% 处以罚款 (需手动计算)"},
		{"非法转让土地", Details{IllegalIncome: 100000}, Moderate, "按违法所得的 20% ~ 40% 处以罚款 (需手动计算)"},
		{"非法转让土地", Details{IllegalIncome: 500000}, Severe, "按违法所得的 40% ~ 50% 处以罚款 (需手动计算)"},
		{"临时用地逾期未恢复", Details{Area: 6 * MuToSqm, LandType: LandCultivated}, Moderate, "按土地复垦费的 1.2 ~ 1.5 倍处以罚款 (需手动计算)"},
		{"临时用地逾期未恢复", Details{LandType: LandBasicFarmland}, Severe, "按土地复垦费的 1.5 ~ 2 倍处以罚款 (需手动计算)"},
	}
	for _, tt := range tests {
		res := Evaluate(tt.label, tt.d)
		if !math.IsNaN(res.Fine) || !res.Symbolic() {
			t.Errorf("%s: fine = %v", tt.label, res.Fine)
		}
		if res.Severity != tt.sev || res.FineText != tt.text {
			t.Errorf("%s: %s %q", tt.label, res.Severity, res.FineText)
		}
	}
}

func TestFlatZeroFineHasNoFineClause(t *testing.T) {
	res := Evaluate("农村村民非法占地建住宅", Details{Name: "宅基地", Area: 200, LandType: LandCultivated})
	if res.Fine != 0 || res.FineText != "无罚款" || res.Severity != Moderate {
		t.Fatalf("result = %+v", res)
	}
	if strings.Contains(res.Report, "处以罚款") {
		t.Fatalf("report has fine clause:\n%s", res.Report)
	}
	if !strings.HasSuffix(res.Report, "1. 责令退还非法占用的土地\n2. 限期拆除在非法占用的土地上新建的房屋") {
		t.Fatalf("report tail:\n%s", res.Report)
	}
}

func TestReportComposition(t *testing.T) {
	res := Evaluate("擅自将农用地改为建设用地", Details{
		Name:   "图斑1",
		Area:   1000,
		Center: [2]float64{108.9, 34.3},
	})
	want := strings.Join([]string{
		"【图斑1】",
		"事项类型: 擅自将农用地改为建设用地 (对违反土地利用总体规划擅自将农用地改为建设用地的行政处罚)",
		"违法情形: 轻微 (擅自将基本农田以外的农用地改为建设用地，面积不满10亩。)",
		"区域位置: 经度 108.900000, 纬度 34.300000",
		"区域面积: 1000.00 平方米",
		"",
		"处罚依据:",
		basisArticle77,
		"",
		"处理意见:",
		"1. 责令限期改正",
		"2. 恢复土地原状",
		"3. 限期 30 日内改正。",
		"4. 处以罚款：人民币 75,000 元整。",
	}, "\n")
	if res.Report != want {
		t.Fatalf("report:\n%s\nwant:\n%s", res.Report, want)
	}
}

func TestLandUseChangeBasicFarmlandIsSevere(t *testing.T) {
	res := Evaluate("擅自将农用地改为建设用地", Details{Area: 10, LandType: LandBasicFarmland})
	if res.Severity != Severe || res.Fine != 1750 {
		t.Fatalf("result = %+v", res)
	}
}

func TestResultJSON(t *testing.T) {
	sym := Evaluate("非法转让土地", Details{Name: "a"})
	b, err := json.Marshal(sym)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	json.Unmarshal(b, &m)
	if m["fine"] != nil || m["symbolic"] != true {
		t.Fatalf("symbolic json = %s", b)
	}
	num := Evaluate(occupation, Details{Name: "a", Area: 100})
	b, _ = json.Marshal(num)
	m = nil
	json.Unmarshal(b, &m)
	if m["fine"] != float64(20000) || m["symbolic"] != false || m["severity"] != "轻微" {
		t.Fatalf("numeric json = %s", b)
	}
}

func TestResultJSONRoundTrip(t *testing.T) {
	for _, in := range []Result{
		Evaluate("非法转让土地", Details{Name: "a", IllegalIncome: 100000}),
		Evaluate(occupation, Details{Name: "b", Area: 100}),
	} {
		b, _ := json.Marshal(in)
		var out Result
		if err := json.Unmarshal(b, &out); err != nil {
			t.Fatal(err)
		}
		if out.Symbolic() != in.Symbolic() || (!in.Symbolic() && out.Fine != in.Fine) {
			t.Fatalf("fine %v -> %v", in.Fine, out.Fine)
		}
		if out.Report != in.Report || out.Severity != in.Severity || out.RuleID != in.RuleID {
			t.Fatalf("round trip = %+v", out)
		}
	}
}
