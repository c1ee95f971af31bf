// 包 migrate：启动时建立处罚案件所需的表与索引
package migrate

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/plutoqz/ruoyi-f/internal/logger"
)

// 背景：首次运行自动建表；后续版本新增列时追加 ADD COLUMN IF NOT EXISTS 语句
// 约束：全部语句幂等；只创建最小必需结构
var statements = []string{
	`CREATE TABLE IF NOT EXISTS penalty_cases (
		id BIGSERIAL PRIMARY KEY,
		case_no TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		violation_type TEXT NOT NULL,
		rule_id TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT '',
		area DOUBLE PRECISION NOT NULL DEFAULT 0,
		center_lng DOUBLE PRECISION NOT NULL DEFAULT 0,
		center_lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		land_type TEXT NOT NULL DEFAULT '',
		fine DOUBLE PRECISION,
		fine_text TEXT NOT NULL DEFAULT '',
		report TEXT NOT NULL DEFAULT '',
		geometry TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		operator_ip TEXT NOT NULL DEFAULT '',
		operator_region TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_penalty_cases_no ON penalty_cases(case_no)`,
	`CREATE INDEX IF NOT EXISTS idx_penalty_cases_created ON penalty_cases(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_penalty_cases_rule ON penalty_cases(rule_id, severity)`,
}

// EnsureSchema：顺序执行建表语句，遇错即停
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, s := range statements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			logger.L().Error("schema_error", "idx", i, "err", err)
			return err
		}
	}
	logger.L().Debug("schema_done", "statements", len(statements))
	return nil
}
