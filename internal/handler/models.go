package handler

import "github.com/shopspring/decimal"

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title          string          `json:"title" binding:"required"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	GoalAmount     decimal.Decimal `json:"goal_amount" binding:"required"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	CreatorAddress string          `json:"creator_address" binding:"required"`
}

// CommitRequest 投资承诺请求
type CommitRequest struct {
	InvestorAddress string          `json:"investor_address" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	LockupPeriod    string          `json:"lockup_period"`
}

// WithdrawRequest 提款请求
type WithdrawRequest struct {
	ProjectId      int64  `json:"project_id" binding:"required"`
	CreatorAddress string `json:"creator_address" binding:"required"`
}

// CheckRepaymentRequest 还款巡检请求
type CheckRepaymentRequest struct {
	ProjectId int64  `json:"project_id" binding:"required"`
	Source    string `json:"source"`
}
