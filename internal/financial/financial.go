package financial

import (
	"time"

	"github.com/blues/ess/internal/errs"
	"github.com/shopspring/decimal"
)

// 平台手续费率 2%
var FeeRate = decimal.NewFromFloat(0.02)

// MinFee 最低手续费，低于此值的投资额拒绝
var MinFee = decimal.NewFromFloat(0.01)

var hundred = decimal.NewFromInt(100)

// LockupPeriods 支持的锁定期，封闭集合
var LockupPeriods = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"72h": 72 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// PlatformFee 计算平台手续费
func PlatformFee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(FeeRate)
}

// NetAmount 计算扣除手续费后的净额
func NetAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Sub(PlatformFee(amount))
}

// Interest 计算利息，rate取值0-100
func Interest(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Mul(rate).Div(hundred)
}

// TotalRepayment 计算应还总额（本金+利息）
func TotalRepayment(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Add(Interest(principal, rate))
}

// FundingPercentage 计算募集完成百分比，上限100，目标为0时返回0
func FundingPercentage(current, goal decimal.Decimal) decimal.Decimal {
	if goal.IsZero() {
		return decimal.Zero
	}
	pct := current.Div(goal).Mul(hundred)
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// LockupExpiry 计算锁定期到期时间，不支持的周期返回validation错误
func LockupExpiry(period string, from time.Time) (time.Time, error) {
	d, ok := LockupPeriods[period]
	if !ok {
		return time.Time{}, errs.Validation("unsupported lockup period: %s", period)
	}
	return from.Add(d), nil
}

// LockupActive 判断锁定期是否仍然生效
func LockupActive(lockupEnd *time.Time, now time.Time) bool {
	if lockupEnd == nil {
		return false
	}
	return lockupEnd.After(now)
}

// RemainingLockup 计算剩余锁定时长，已到期返回0
func RemainingLockup(lockupEnd time.Time, now time.Time) time.Duration {
	if !lockupEnd.After(now) {
		return 0
	}
	return lockupEnd.Sub(now)
}

// Round2 金额落库或转账前统一保留两位小数，计算过程中不取整
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Floor2 金额向下保留两位小数。转账金额不能超过可用余额，四舍五入会多出半分
func Floor2(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundFloor(2)
}

// ValidateCommitmentAmount 校验投资金额
func ValidateCommitmentAmount(amount, maxAmount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errs.Validation("amount must be greater than 0")
	}
	if amount.GreaterThan(maxAmount) {
		return errs.Validation("amount cannot exceed %s", maxAmount.String())
	}
	if PlatformFee(amount).LessThan(MinFee) {
		return errs.Validation("amount too small (minimum fee is %s)", MinFee.String())
	}
	return nil
}

// ValidateBorrowAmount 校验借款金额不超过可用资金
func ValidateBorrowAmount(amount, availableFunds decimal.Decimal) error {
	if !amount.IsPositive() {
		return errs.Validation("amount must be greater than 0")
	}
	if amount.GreaterThan(availableFunds) {
		return errs.Validation("only %s available to borrow", availableFunds.String())
	}
	return nil
}

// ValidateRepaymentAmount 校验还款金额必须覆盖应还总额
func ValidateRepaymentAmount(amount, requiredAmount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errs.Validation("amount must be greater than 0")
	}
	if amount.LessThan(requiredAmount) {
		return errs.Validation("full repayment of %s required", requiredAmount.String())
	}
	return nil
}
