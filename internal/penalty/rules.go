// 包 penalty：土地类行政处罚裁量规则表与罚款计算
// 背景：规则依据《陕西省自然资源行政处罚裁量权实施基准（土地类）》整理；面积阈值按亩给出，
// 计算时统一换算为平方米（1 亩 = 666.67 平方米）。
package penalty

import (
	"errors"
	"fmt"
)

// MuToSqm：1 亩折合平方米
const MuToSqm = 666.67

// Severity：违法情形等级，按面积 / 地类 / 违法所得递增
type Severity string

const (
	Minor    Severity = "轻微"
	Moderate Severity = "一般"
	Severe   Severity = "严重"
)

// Severities：等级全序
var Severities = []Severity{Minor, Moderate, Severe}

// 地类
const (
	LandBasicFarmland = "基本农田"
	LandCultivated    = "耕地"
	LandOther         = "其他土地"
)

// Range：区间，含义随罚款形态而定（元/平方米、百分比、倍数）
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

// Shape：罚款形态
type Shape int

const (
	ShapeNone Shape = iota
	ShapePerSqm
	ShapeIncomePercent
	ShapeReclamationMultiple
	ShapeFlat
)

func (s Shape) String() string {
	switch s {
	case ShapePerSqm:
		return "per_sqm"
	case ShapeIncomePercent:
		return "income_percent"
	case ShapeReclamationMultiple:
		return "reclamation_multiple"
	case ShapeFlat:
		return "flat"
	}
	return "none"
}

// 文档注释：某一等级的处罚安排
// 约束：FinePerSqm / FinePercentageOfIllegalIncome / FineAsMultipleOfReclamationFee / Fine 恰有一个非空。
type Schedule struct {
	Description                    string   `json:"description"`
	Actions                        []string `json:"actions"`
	FinePerSqm                     *Range   `json:"finePerSqm,omitempty"`
	FinePercentageOfIllegalIncome  *Range   `json:"finePercentageOfIllegalIncome,omitempty"`
	FineAsMultipleOfReclamationFee *Range   `json:"fineAsMultipleOfReclamationFee,omitempty"`
	Fine                           *float64 `json:"fine,omitempty"`
	DeadlineInDays                 int      `json:"deadlineInDays,omitempty"`
}

var errShape = errors.New("schedule must carry exactly one fine shape")

// Shape：返回已填写的罚款形态；未填写或多于一个时返回错误
func (s Schedule) Shape() (Shape, error) {
	shape, n := ShapeNone, 0
	if s.FinePerSqm != nil {
		shape, n = ShapePerSqm, n+1
	}
	if s.FinePercentageOfIllegalIncome != nil {
		shape, n = ShapeIncomePercent, n+1
	}
	if s.FineAsMultipleOfReclamationFee != nil {
		shape, n = ShapeReclamationMultiple, n+1
	}
	if s.Fine != nil {
		shape, n = ShapeFlat, n+1
	}
	if n != 1 {
		return ShapeNone, errShape
	}
	return shape, nil
}

// Details：评估输入；Center 为 WGS84 [lng, lat]
type Details struct {
	Name           string     `json:"name"`
	Area           float64    `json:"area"`
	Center         [2]float64 `json:"center"`
	LandType       string     `json:"landType,omitempty"`
	IllegalIncome  float64    `json:"illegalIncome,omitempty"`
	ReclamationFee float64    `json:"reclamationFee,omitempty"`
}

func (d Details) landType(def string) string {
	if d.LandType == "" {
		return def
	}
	return d.LandType
}

func (d Details) mu() float64 { return d.Area / MuToSqm }

// Rule：一条违法事项规则；Classify 为纯函数
type Rule struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	LegalBasis string                 `json:"legalBasis"`
	Classify   func(Details) Severity `json:"-"`
	Penalties  map[Severity]Schedule  `json:"penalties"`
}

func perSqm(lo, hi float64) *Range { return &Range{Min: lo, Max: hi} }

func flat(v float64) *float64 { return &v }

// 面积三档：a、b 为亩数分界，左闭右开
func byMu(mu, a, b float64) Severity {
	switch {
	case mu < a:
		return Minor
	case mu < b:
		return Moderate
	}
	return Severe
}

func byLandType(d Details) Severity {
	switch d.landType(LandOther) {
	case LandBasicFarmland:
		return Severe
	case LandCultivated:
		return Moderate
	}
	return Minor
}

// 复垦类：基本农田直接严重，耕地按 5 / 10 亩分档，其他土地轻微
func byDamagedCultivated(d Details) Severity {
	switch d.landType(LandOther) {
	case LandBasicFarmland:
		return Severe
	case LandCultivated:
		return byMu(d.mu(), 5, 10)
	}
	return Minor
}

var (
	occupationActions = []string{"责令退还非法占用的土地", "限期15日内拆除在非法占用的土地上新建的建筑物和其他设施，恢复土地原状"}
	transferActions   = []string{"没收违法所得", "限期拆除或没收新建建筑物"}
	housingActions    = []string{"责令退还非法占用的土地", "限期拆除在非法占用的土地上新建的房屋"}
)

const basisArticle77 = "【法律】\n1.《土地管理法》（2019年修正）第七十七条\n【行政法规】\n1.《土地管理法实施条例》（2021年修订）第五十七条"

// rules：静态规则表，顺序即界面选项顺序
var rules = []Rule{
	{
		ID:         "illegal_land_occupation",
		Name:       "对未经批准或者采取欺骗手段骗取批准，非法占用土地的行政处罚",
		LegalBasis: basisArticle77,
		Classify: func(d Details) Severity {
			switch d.landType(LandOther) {
			case LandBasicFarmland:
				return byMu(d.mu(), 5, 10)
			case LandCultivated:
				return byMu(d.mu(), 10, 20)
			}
			return byMu(d.mu(), 20, 40)
		},
		Penalties: map[Severity]Schedule{
			Minor: {
				Description: "非法占用基本农田5亩以下；或非法占用基本农田以外的耕地10亩以下；或非法占用其他土地20亩以下。",
				Actions:     occupationActions,
				FinePerSqm:  perSqm(100, 300),
			},
			Moderate: {
				Description: "非法占用基本农田5亩以上10亩以下；或非法占用基本农田以外的耕地10亩以上20亩以下；或非法占用其他土地20亩以上40亩以下。",
				Actions:     occupationActions,
				FinePerSqm:  perSqm(300, 600),
			},
			Severe: {
				Description: "非法占用基本农田10亩以上；或非法占用基本农田以外的耕地20亩以上；或非法占用其他土地40亩以上。",
				Actions:     occupationActions,
				FinePerSqm:  perSqm(600, 1000),
			},
		},
	},
	{
		ID:         "illegal_land_use_change",
		Name:       "对违反土地利用总体规划擅自将农用地改为建设用地的行政处罚",
		LegalBasis: basisArticle77,
		Classify: func(d Details) Severity {
			// 擅自改变基本农田用途直接按严重处理
			if d.landType(LandCultivated) == LandBasicFarmland {
				return Severe
			}
			return byMu(d.mu(), 10, 20)
		},
		Penalties: map[Severity]Schedule{
			Minor: {
				Description:    "擅自将基本农田以外的农用地改为建设用地，面积不满10亩。",
				Actions:        []string{"责令限期改正", "恢复土地原状"},
				FinePerSqm:     perSqm(50, 100),
				DeadlineInDays: 30,
			},
			Moderate: {
				Description:    "擅自将基本农田以外的农用地改为建设用地，面积在10亩至20亩之间。",
				Actions:        []string{"责令限期改正", "恢复土地原状"},
				FinePerSqm:     perSqm(100, 150),
				DeadlineInDays: 20,
			},
			Severe: {
				Description:    "擅自将基本农田改为建设用地，或将其他农用地改为建设用地面积超过20亩。",
				Actions:        []string{"责令限期拆除在非法转让的土地上新建的建筑物和其他设施", "恢复土地原状"},
				FinePerSqm:     perSqm(150, 200),
				DeadlineInDays: 15,
			},
		},
	},
	{
		ID:         "illegal_land_transfer",
		Name:       "对买卖或者以其他形式非法转让土地的行政处罚",
		LegalBasis: "【法律】\n1.《土地管理法》（2019年修正）第七十四条\n【行政法规】\n1.《土地管理法实施条例》（2021年修订）第五十四条\n2.《基本农田保护条例》（2011年修订）第三十条第四项",
		Classify: func(d Details) Severity {
			switch {
			case d.IllegalIncome < 50000:
				return Minor
			case d.IllegalIncome < 200000:
				return Moderate
			}
			return Severe
		},
		Penalties: map[Severity]Schedule{
			Minor: {
				Description:                   "违法所得较小，社会危害程度较轻。",
				Actions:                       transferActions,
				FinePercentageOfIllegalIncome: &Range{Min: 10, Max: 20},
			},
			Moderate: {
				Description:                   "违法所得数额较大，或造成一定社会影响。",
				Actions:                       transferActions,
				FinePercentageOfIllegalIncome: &Range{Min: 20, Max: 40},
			},
			Severe: {
				Description:                   "违法所得数额巨大，或涉及基本农田，或造成恶劣社会影响。",
				Actions:                       transferActions,
				FinePercentageOfIllegalIncome: &Range{Min: 40, Max: 50},
			},
		},
	},
	{
		ID:         "illegal_housing_construction",
		Name:       "对农村村民未经批准或者采取欺骗手段骗取批准，非法占用土地建住宅的行政处罚",
		LegalBasis: "【法律】\n1.《土地管理法》（2019年修正）第七十八条\n【行政法规】\n1.《土地管理法实施条例》（2021年修订）第五十八条",
		Classify:   byLandType,
		Penalties: map[Severity]Schedule{
			Minor:    {Description: "非法占用除耕地、基本农田以外的土地建住宅。", Actions: housingActions, Fine: flat(0)},
			Moderate: {Description: "非法占用耕地建住宅。", Actions: housingActions, Fine: flat(0)},
			Severe:   {Description: "非法占用基本农田建住宅。", Actions: housingActions, Fine: flat(0)},
		},
	},
	{
		ID:         "refusal_to_reclaim_land",
		Name:       "对拒不履行土地复垦义务的行政处罚",
		LegalBasis: "【法律】\n1.《土地管理法》（2019年修正）第七十五条\n【行政法规】\n1.《土地管理法实施条例》（2021年修订）第四十四条、第五十六条",
		Classify:   byDamagedCultivated,
		Penalties: map[Severity]Schedule{
			Minor: {
				Description: "逾期不复垦，损毁耕地（除基本农田）5亩以下，或损毁其他土地。",
				Actions:     []string{"责令限期改正"},
				FinePerSqm:  perSqm(100, 300),
			},
			Moderate: {
				Description: "逾期不复垦，损毁耕地（除基本农田）5亩以上10亩以下。",
				Actions:     []string{"责令限期改正"},
				FinePerSqm:  perSqm(300, 600),
			},
			Severe: {
				Description: "逾期不复垦，损毁基本农田，或损毁耕地（除基本农田）10亩以上。",
				Actions:     []string{"责令限期改正", "情节严重的，由主管部门代为完成，所需费用由违法者承担"},
				FinePerSqm:  perSqm(600, 1000),
			},
		},
	},
	{
		ID:         "permanent_construction_on_temporary_land",
		Name:       "对在临时使用的土地上修建永久性建筑物、构筑物的行政处罚",
		LegalBasis: "【行政法规】\n1.《土地管理法实施条例》（2021年修订）第四十六条",
		Classify:   byLandType,
		Penalties: map[Severity]Schedule{
			Minor:    {Description: "在除耕地、基本农田外的临时使用土地上修建永久建筑。", Actions: []string{"责令限期拆除"}, Fine: flat(0)},
			Moderate: {Description: "在临时使用的耕地上修建永久建筑。", Actions: []string{"责令限期拆除"}, Fine: flat(0)},
			Severe:   {Description: "在临时使用的基本农田上修建永久建筑。", Actions: []string{"责令限期拆除"}, Fine: flat(0)},
		},
	},
	{
		ID:         "failure_to_restore_temporary_land",
		Name:       "对临时使用土地期满未恢复土地原状的行政处罚",
		LegalBasis: "【行政法规】\n1.《土地管理法实施条例》（2021年修订）第四十五条",
		Classify:   byDamagedCultivated,
		Penalties: map[Severity]Schedule{
			Minor: {
				Description:                    "逾期未恢复，损毁耕地（除基本农田）5亩以下，或损毁其他土地。",
				Actions:                        []string{"责令限期改正"},
				FineAsMultipleOfReclamationFee: &Range{Min: 1, Max: 1.2},
			},
			Moderate: {
				Description:                    "逾期未恢复，损毁耕地（除基本农田）5亩以上10亩以下。",
				Actions:                        []string{"责令限期改正"},
				FineAsMultipleOfReclamationFee: &Range{Min: 1.2, Max: 1.5},
			},
			Severe: {
				Description:                    "逾期未恢复，损毁基本农田，或损毁耕地（除基本农田）10亩以上。",
				Actions:                        []string{"责令限期改正"},
				FineAsMultipleOfReclamationFee: &Range{Min: 1.5, Max: 2},
			},
		},
	},
}

// violationLabels：界面选项到规则编号
var violationLabels = []struct{ label, id string }{
	{"非法占用土地(未批先建)", "illegal_land_occupation"},
	{"擅自将农用地改为建设用地", "illegal_land_use_change"},
	{"非法转让土地", "illegal_land_transfer"},
	{"农村村民非法占地建住宅", "illegal_housing_construction"},
	{"拒不履行土地复垦义务", "refusal_to_reclaim_land"},
	{"临时用地上建永久建筑", "permanent_construction_on_temporary_land"},
	{"临时用地逾期未恢复", "failure_to_restore_temporary_land"},
}

// Labels：界面可选的违法事项名称，按规则表顺序
func Labels() []string {
	out := make([]string, len(violationLabels))
	for i, v := range violationLabels {
		out[i] = v.label
	}
	return out
}

// Lookup：按界面名称查规则
func Lookup(label string) (Rule, bool) {
	for _, v := range violationLabels {
		if v.label == label {
			return RuleByID(v.id)
		}
	}
	return Rule{}, false
}

// RuleByID：按规则编号查规则
func RuleByID(id string) (Rule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules：规则表副本（只读使用）
func Rules() []Rule { return append([]Rule(nil), rules...) }

// Validate：检查规则表不变式：三档齐全、每档恰有一种罚款形态、标签均可解析
func Validate() error {
	var errs []error
	for _, r := range rules {
		if r.Classify == nil {
			errs = append(errs, fmt.Errorf("rule %s: missing classifier", r.ID))
		}
		for _, sev := range Severities {
			s, ok := r.Penalties[sev]
			if !ok {
				errs = append(errs, fmt.Errorf("rule %s: missing %s schedule", r.ID, sev))
				continue
			}
			if _, err := s.Shape(); err != nil {
				errs = append(errs, fmt.Errorf("rule %s/%s: %w", r.ID, sev, err))
			}
			if len(s.Actions) == 0 {
				errs = append(errs, fmt.Errorf("rule %s/%s: no actions", r.ID, sev))
			}
		}
	}
	for _, v := range violationLabels {
		if _, ok := RuleByID(v.id); !ok {
			errs = append(errs, fmt.Errorf("label %s: unknown rule %s", v.label, v.id))
		}
	}
	return errors.Join(errs...)
}
