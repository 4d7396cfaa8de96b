package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectModel 众筹项目模型
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`
	Category    string `json:"category"`

	// 众筹信息
	GoalAmount     decimal.Decimal `json:"goal_amount" gorm:"type:numeric(20,2);not null"`
	CurrentFunding decimal.Decimal `json:"current_funding" gorm:"type:numeric(20,2);default:0"`
	InterestRate   decimal.Decimal `json:"interest_rate" gorm:"type:numeric(5,2);not null"` // 0-100

	// 状态
	Status ProjectStatus `json:"status" gorm:"default:'active'"`

	// 创建者信息
	CreatorAddress string `json:"creator_address" gorm:"not null"`

	// 托管钱包信息，地址一旦写入不再变更
	CustodialAddress string `json:"custodial_address" gorm:"not null"`
	EscrowPath       string `json:"-" gorm:"not null"` // 主种子下的派生路径

	// 结算信息，仅由Reconciler写入
	WithdrawalTxRef      string          `json:"withdrawal_tx_ref"`
	WithdrawnAmount      decimal.Decimal `json:"withdrawn_amount" gorm:"type:numeric(20,2);default:0"`
	PlatformFeePaid      decimal.Decimal `json:"platform_fee_paid" gorm:"type:numeric(20,2);default:0"`
	LastRepaymentCheckAt *time.Time      `json:"last_repayment_check_at"`
	RepaymentAmount      decimal.Decimal `json:"repayment_amount" gorm:"type:numeric(20,2);default:0"`
	RepaymentDate        *time.Time      `json:"repayment_date"`
}

// ProjectStatus 项目状态，只允许向前流转
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"    // 募集中
	ProjectStatusFunded    ProjectStatus = "funded"    // 已达标
	ProjectStatusBorrowing ProjectStatus = "borrowing" // 已提款，待还款
	ProjectStatusRepaid    ProjectStatus = "repaid"    // 已还清（终态）
	ProjectStatusCompleted ProjectStatus = "completed" // 直接结清（终态，本部署不产生）
)

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}
