package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommitmentModel 投资承诺记录
type CommitmentModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId       int64  `json:"project_id" gorm:"index;not null"`
	InvestorAddress string `json:"investor_address" gorm:"not null"`

	// Amount为投资总额，NetAmount = Amount - PlatformFee 计入项目募集额
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(20,2);not null"`
	PlatformFee decimal.Decimal `json:"platform_fee" gorm:"type:numeric(20,2);not null"`
	NetAmount   decimal.Decimal `json:"net_amount" gorm:"type:numeric(20,2);not null"`

	// 锁定期
	LockupPeriod string     `json:"lockup_period"`
	LockupEndAt  *time.Time `json:"lockup_end_at"`

	Status CommitmentStatus `json:"status" gorm:"default:'active'"`
}

// CommitmentStatus 承诺状态
type CommitmentStatus string

const (
	CommitmentStatusActive   CommitmentStatus = "active"   // 生效中
	CommitmentStatusRedeemed CommitmentStatus = "redeemed" // 已赎回
)

// TableName 自定义表名
func (CommitmentModel) TableName() string {
	return "commitment"
}
