package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepaymentCheckModel 还款巡检审计记录，只追加，不更新不删除
type RepaymentCheckModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProjectId       int64           `json:"project_id" gorm:"index;not null"`
	ObservedBalance decimal.Decimal `json:"observed_balance" gorm:"type:numeric(20,2);not null"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount" gorm:"type:numeric(20,2);not null"`
	IsFullyRepaid   bool            `json:"is_fully_repaid"`
	CheckerSource   CheckerSource   `json:"checker_source" gorm:"not null"`
	Notes           string          `json:"notes" gorm:"type:text"`
}

// CheckerSource 巡检触发来源
type CheckerSource string

const (
	CheckerSourceManual    CheckerSource = "manual"    // 手动触发
	CheckerSourceAutomated CheckerSource = "automated" // 定时任务触发
	CheckerSourceAPI       CheckerSource = "api"       // 外部API触发
)

// TableName 自定义表名
func (RepaymentCheckModel) TableName() string {
	return "repayment_check"
}
