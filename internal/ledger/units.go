package ledger

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// 账本侧以整数最小单位记账（USDT为6位精度），本地以两位小数的十进制金额记账。
// 两个方向的换算都必须走这里，不允许散落的浮点运算。

// ToBaseUnits 十进制金额转账本最小单位
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

// FromBaseUnits 账本最小单位转十进制金额
func FromBaseUnits(units *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(units, -decimals)
}
