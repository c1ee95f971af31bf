// 包 store：处罚案件的 PostgreSQL 读写
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	gonanoid "github.com/matoous/go-nanoid"

	"github.com/plutoqz/ruoyi-f/internal/logger"
	"github.com/plutoqz/ruoyi-f/internal/metrics"
)

var ErrNotFound = errors.New("case not found")

// 案件编号字母表：去掉易混的 I、O
const (
	caseAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	caseNoLen    = 12
)

// Case：一次处罚评估的存档
// 约束：Fine 为 nil 表示需人工计算；Geometry 为 GeoJSON 文本，可为空。
type Case struct {
	ID             int64           `db:"id" json:"id"`
	CaseNo         string          `db:"case_no" json:"caseNo"`
	Name           string          `db:"name" json:"name"`
	ViolationType  string          `db:"violation_type" json:"violationType"`
	RuleID         string          `db:"rule_id" json:"ruleId"`
	Severity       string          `db:"severity" json:"severity"`
	Area           float64         `db:"area" json:"area"`
	CenterLng      float64         `db:"center_lng" json:"centerLng"`
	CenterLat      float64         `db:"center_lat" json:"centerLat"`
	LandType       string          `db:"land_type" json:"landType"`
	Fine           *float64        `db:"fine" json:"fine"`
	FineText       string          `db:"fine_text" json:"fineText"`
	Report         string          `db:"report" json:"report"`
	GeometryText   string          `db:"geometry" json:"-"`
	Geometry       json.RawMessage `db:"-" json:"geometry,omitempty"`
	Address        string          `db:"address" json:"address"`
	OperatorIP     string          `db:"operator_ip" json:"-"`
	OperatorRegion string          `db:"operator_region" json:"operatorRegion"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

func (c *Case) fill() {
	if c.GeometryText != "" {
		c.Geometry = json.RawMessage(c.GeometryText)
	}
}

// Store：案件表访问入口
type Store struct {
	db *sqlx.DB
}

func AttachDB(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) DB() *sqlx.DB { return s.db }

// NewCaseNo：生成 12 位大写案件编号
func NewCaseNo() (string, error) {
	return gonanoid.Generate(caseAlphabet, caseNoLen)
}

// 文档注释：写入案件
// 背景：编号在此生成；回填自增主键与创建时间。
// 约束：Geometry 非空时覆盖 GeometryText。
func (s *Store) Create(ctx context.Context, c *Case) error {
	no, err := NewCaseNo()
	if err != nil {
		return fmt.Errorf("generate case no: %w", err)
	}
	c.CaseNo = no
	if len(c.Geometry) > 0 {
		c.GeometryText = string(c.Geometry)
	}
	const q = `
		INSERT INTO penalty_cases (
			case_no, name, violation_type, rule_id, severity,
			area, center_lng, center_lat, land_type,
			fine, fine_text, report, geometry,
			address, operator_ip, operator_region
		) VALUES (
			:case_no, :name, :violation_type, :rule_id, :severity,
			:area, :center_lng, :center_lat, :land_type,
			:fine, :fine_text, :report, :geometry,
			:address, :operator_ip, :operator_region
		) RETURNING id, created_at`
	rows, err := s.db.NamedQueryContext(ctx, q, c)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert case: %w", err)
		}
		return fmt.Errorf("insert case: no row returned")
	}
	if err := rows.Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	metrics.CasesCreatedTotal.Inc()
	logger.L().Info("case_created", "case_no", c.CaseNo, "rule", c.RuleID, "severity", c.Severity)
	return nil
}

const selectCase = `
	SELECT id, case_no, name, violation_type, rule_id, severity,
		area, center_lng, center_lat, land_type,
		fine, fine_text, report, geometry,
		address, operator_ip, operator_region, created_at
	FROM penalty_cases`

// Get：按编号查询；不存在返回 ErrNotFound
func (s *Store) Get(ctx context.Context, caseNo string) (*Case, error) {
	var c Case
	err := s.db.GetContext(ctx, &c, selectCase+` WHERE case_no = $1`, caseNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case %s: %w", caseNo, err)
	}
	c.fill()
	return &c, nil
}

// ClampLimit：列表条数限制在 1..100，非正数取 20
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return 20
	case n > 100:
		return 100
	}
	return n
}

// Recent：按创建时间倒序列出最近案件
func (s *Store) Recent(ctx context.Context, limit int) ([]Case, error) {
	var out []Case
	if err := s.db.SelectContext(ctx, &out, selectCase+` ORDER BY created_at DESC, id DESC LIMIT $1`, ClampLimit(limit)); err != nil {
		return nil, fmt.Errorf("recent cases: %w", err)
	}
	for i := range out {
		out[i].fill()
	}
	return out, nil
}

// SeverityCount：按规则与情节的案件数
type SeverityCount struct {
	RuleID   string `db:"rule_id" json:"ruleId"`
	Severity string `db:"severity" json:"severity"`
	Count    int64  `db:"n" json:"count"`
}

// Stats：案件分布统计
func (s *Store) Stats(ctx context.Context) ([]SeverityCount, error) {
	var out []SeverityCount
	const q = `SELECT rule_id, severity, COUNT(*) AS n FROM penalty_cases GROUP BY rule_id, severity ORDER BY rule_id, severity`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("case stats: %w", err)
	}
	return out, nil
}
