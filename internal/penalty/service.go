package penalty

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
)

const (
	fineTextNone  = "无罚款"
	fineTextError = "错误"
)

// Result：评估结果
// 约束：Fine 为 NaN 表示需人工按违法所得或复垦费计算（不是错误）；未知事项时 Fine 为 0、RuleID 为空。
type Result struct {
	Report   string   `json:"report"`
	Fine     float64  `json:"fine"`
	FineText string   `json:"fineText"`
	Severity Severity `json:"severity,omitempty"`
	RuleID   string   `json:"ruleId,omitempty"`
}

// Symbolic：罚款是否需人工计算
func (r Result) Symbolic() bool { return math.IsNaN(r.Fine) }

// MarshalJSON：NaN 无法编码为 JSON，输出 fine=null 且 symbolic=true
func (r Result) MarshalJSON() ([]byte, error) {
	var fine *float64
	if !r.Symbolic() {
		f := r.Fine
		fine = &f
	}
	return json.Marshal(struct {
		Report   string   `json:"report"`
		Fine     *float64 `json:"fine"`
		Symbolic bool     `json:"symbolic"`
		FineText string   `json:"fineText"`
		Severity Severity `json:"severity,omitempty"`
		RuleID   string   `json:"ruleId,omitempty"`
	}{r.Report, fine, r.Symbolic(), r.FineText, r.Severity, r.RuleID})
}

// UnmarshalJSON：MarshalJSON 的逆过程，symbolic 为 true 时 Fine 还原为 NaN
func (r *Result) UnmarshalJSON(b []byte) error {
	var w struct {
		Report   string   `json:"report"`
		Fine     *float64 `json:"fine"`
		Symbolic bool     `json:"symbolic"`
		FineText string   `json:"fineText"`
		Severity Severity `json:"severity"`
		RuleID   string   `json:"ruleId"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Result{Report: w.Report, FineText: w.FineText, Severity: w.Severity, RuleID: w.RuleID}
	switch {
	case w.Fine != nil:
		r.Fine = *w.Fine
	case w.Symbolic:
		r.Fine = math.NaN()
	}
	return nil
}

var zh = message.NewPrinter(language.Chinese)

// 文档注释：按违法事项名称评估处罚
// 参数：violationType 为界面选项名称（见 Labels）；d 为图斑信息。
// 返回：未知事项不报错，Report 内嵌错误说明，Fine 为 0。
func Evaluate(violationType string, d Details) Result {
	rule, ok := Lookup(violationType)
	if !ok {
		metrics.PenaltyUnknownTotal.Inc()
		logger.L().Warn("penalty_rule_unknown", "type", violationType)
		return Result{
			Report:   fmt.Sprintf("【%s】\n错误: 未能找到针对“%s”的有效处罚规则。", d.Name, violationType),
			Fine:     0,
			FineText: fineTextError,
		}
	}
	level := rule.Classify(d)
	sched, ok := rule.Penalties[level]
	if !ok {
		level = Moderate
		sched = rule.Penalties[Moderate]
	}
	fine, fineText := computeFine(sched, d.Area)
	metrics.PenaltyEvaluationsTotal.WithLabelValues(rule.ID, string(level)).Inc()
	return Result{
		Report:   composeReport(violationType, rule, level, sched, d, fineText),
		Fine:     fine,
		FineText: fineText,
		Severity: level,
		RuleID:   rule.ID,
	}
}

func computeFine(s Schedule, area float64) (float64, string) {
	switch {
	case s.FinePerSqm != nil:
		total := math.Round(area * s.FinePerSqm.Mid())
		return total, amountText(total)
	case s.FinePercentageOfIllegalIncome != nil:
		r := s.FinePercentageOfIllegalIncome
		return math.NaN(), fmt.Sprintf("按违法所得的 %s%% ~ %s%% 处以罚款 (需手动计算)", num(r.Min), num(r.Max))
	case s.FineAsMultipleOfReclamationFee != nil:
		r := s.FineAsMultipleOfReclamationFee
		return math.NaN(), fmt.Sprintf("按土地复垦费的 %s ~ %s 倍处以罚款 (需手动计算)", num(r.Min), num(r.Max))
	case s.Fine != nil && *s.Fine > 0:
		return *s.Fine, amountText(*s.Fine)
	}
	return 0, fineTextNone
}

func amountText(v float64) string {
	return "人民币 " + zh.Sprintf("%d", int64(v)) + " 元整"
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// 文档注释：拼装处罚报告
// 约束：段落顺序固定：标识、事项类型、违法情形、区域位置、区域面积、处罚依据、处理意见。
func composeReport(violationType string, rule Rule, level Severity, s Schedule, d Details, fineText string) string {
	var opinion []string
	for i, a := range s.Actions {
		opinion = append(opinion, fmt.Sprintf("%d. %s", i+1, a))
	}
	if s.DeadlineInDays > 0 {
		opinion = append(opinion, fmt.Sprintf("%d. 限期 %d 日内改正。", len(opinion)+1, s.DeadlineInDays))
	}
	if fineText != fineTextNone {
		opinion = append(opinion, fmt.Sprintf("%d. 处以罚款：%s。", len(opinion)+1, fineText))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "【%s】\n", d.Name)
	fmt.Fprintf(&b, "事项类型: %s (%s)\n", violationType, rule.Name)
	fmt.Fprintf(&b, "违法情形: %s (%s)\n", level, s.Description)
	fmt.Fprintf(&b, "区域位置: 经度 %.6f, 纬度 %.6f\n", d.Center[0], d.Center[1])
	fmt.Fprintf(&b, "区域面积: %.2f 平方米\n\n", d.Area)
	fmt.Fprintf(&b, "处罚依据:\n%s\n\n", rule.LegalBasis)
	fmt.Fprintf(&b, "处理意见:\n%s", strings.Join(opinion, "\n"))
	return b.String()
}
