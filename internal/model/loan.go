package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanModel 借款记录，与项目一对一
type LoanModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId       int64  `json:"project_id" gorm:"uniqueIndex;not null"`
	BorrowerAddress string `json:"borrower_address" gorm:"not null"`

	// 金额在创建时一次性固定，TotalRepayment = Principal + InterestAmount
	Principal      decimal.Decimal `json:"principal" gorm:"type:numeric(20,2);not null"`
	InterestRate   decimal.Decimal `json:"interest_rate" gorm:"type:numeric(5,2);not null"`
	InterestAmount decimal.Decimal `json:"interest_amount" gorm:"type:numeric(20,2);not null"`
	TotalRepayment decimal.Decimal `json:"total_repayment" gorm:"type:numeric(20,2);not null"`

	Status  LoanStatus `json:"status" gorm:"default:'active'"`
	DueDate time.Time  `json:"due_date"`

	// 结清信息，仅由Reconciler写入一次
	ActualRepaymentAmount decimal.Decimal `json:"actual_repayment_amount" gorm:"type:numeric(20,2);default:0"`
	ActualRepaymentDate   *time.Time      `json:"actual_repayment_date"`

	// 提款交易引用
	WithdrawalTxRef string `json:"withdrawal_tx_ref"`
}

// LoanStatus 借款状态
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"    // 待还款
	LoanStatusRepaid    LoanStatus = "repaid"    // 已还清
	LoanStatusDefaulted LoanStatus = "defaulted" // 违约
)

// TableName 自定义表名
func (LoanModel) TableName() string {
	return "loan"
}
