package ledger

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToBaseUnits(t *testing.T) {
	cases := []struct {
		amount   string
		decimals int32
		want     int64
	}{
		{"2.50", 6, 2500000},
		{"0", 6, 0},
		{"110", 6, 110000000},
		{"0.01", 6, 10000},
		{"1.23", 2, 123},
	}
	for _, c := range cases {
		amount, _ := decimal.NewFromString(c.amount)
		got := ToBaseUnits(amount, c.decimals)
		if got.Cmp(big.NewInt(c.want)) != 0 {
			t.Errorf("ToBaseUnits(%s, %d) = %s, want %d", c.amount, c.decimals, got.String(), c.want)
		}
	}
}

func TestFromBaseUnits(t *testing.T) {
	cases := []struct {
		units    int64
		decimals int32
		want     string
	}{
		{2500000, 6, "2.5"},
		{0, 6, "0"},
		{110000000, 6, "110"},
		{1, 6, "0.000001"},
		{123, 2, "1.23"},
	}
	for _, c := range cases {
		want, _ := decimal.NewFromString(c.want)
		got := FromBaseUnits(big.NewInt(c.units), c.decimals)
		if !got.Equal(want) {
			t.Errorf("FromBaseUnits(%d, %d) = %s, want %s", c.units, c.decimals, got.String(), c.want)
		}
	}
}

func TestUnitsRoundTrip(t *testing.T) {
	amounts := []string{"0.01", "2.50", "110", "99999.99"}
	for _, s := range amounts {
		amount, _ := decimal.NewFromString(s)
		back := FromBaseUnits(ToBaseUnits(amount, 6), 6)
		if !back.Equal(amount) {
			t.Errorf("round trip mismatch for %s: got %s", s, back.String())
		}
	}
}
