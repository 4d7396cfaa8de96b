package financial

import (
	"testing"
	"time"

	"github.com/blues/ess/internal/errs"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFeePlusNetEqualsAmount(t *testing.T) {
	amounts := []string{"0", "0.50", "1", "100", "123.45", "99999.99", "0.01"}
	for _, s := range amounts {
		amount := dec(s)
		sum := PlatformFee(amount).Add(NetAmount(amount))
		if !sum.Equal(amount) {
			t.Errorf("fee+net != amount for %s: got %s", s, sum.String())
		}
	}
}

func TestPlatformFee(t *testing.T) {
	if !PlatformFee(dec("100")).Equal(dec("2")) {
		t.Errorf("expected 2%% fee on 100, got %s", PlatformFee(dec("100")).String())
	}
	if !NetAmount(dec("100")).Equal(dec("98")) {
		t.Errorf("expected net 98 on 100, got %s", NetAmount(dec("100")).String())
	}
}

func TestTotalRepayment(t *testing.T) {
	cases := []struct {
		principal, rate string
	}{
		{"0", "0"},
		{"100", "10"},
		{"100", "0"},
		{"250.50", "5"},
		{"1000", "100"},
	}
	for _, c := range cases {
		principal, rate := dec(c.principal), dec(c.rate)
		total := TotalRepayment(principal, rate)
		expected := principal.Add(Interest(principal, rate))
		if !total.Equal(expected) {
			t.Errorf("totalRepayment(%s, %s) = %s, want %s",
				c.principal, c.rate, total.String(), expected.String())
		}
	}

	if !TotalRepayment(dec("100"), dec("10")).Equal(dec("110")) {
		t.Errorf("totalRepayment(100, 10) != 110")
	}
}

func TestFundingPercentage(t *testing.T) {
	cases := []struct {
		current, goal, want string
	}{
		{"0", "0", "0"},
		{"50", "100", "50"},
		{"150", "100", "100"}, // 超募封顶
		{"100", "100", "100"},
		{"1", "3", "33.33"},
	}
	for _, c := range cases {
		got := Round2(FundingPercentage(dec(c.current), dec(c.goal)))
		if !got.Equal(dec(c.want)) {
			t.Errorf("fundingPercentage(%s, %s) = %s, want %s",
				c.current, c.goal, got.String(), c.want)
		}
	}
}

func TestLockupExpiry(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]time.Time{
		"24h": from.Add(24 * time.Hour),
		"72h": from.Add(72 * time.Hour),
		"7d":  from.Add(7 * 24 * time.Hour),
	}
	for period, want := range cases {
		got, err := LockupExpiry(period, from)
		if err != nil {
			t.Fatalf("LockupExpiry(%s) err: %v", period, err)
		}
		if !got.Equal(want) {
			t.Errorf("LockupExpiry(%s) = %v, want %v", period, got, want)
		}
	}

	if _, err := LockupExpiry("30d", from); !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("expected validation error for unsupported period, got %v", err)
	}
}

func TestLockupActive(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	if !LockupActive(&future, now) {
		t.Error("future lockup should be active")
	}
	if LockupActive(&past, now) {
		t.Error("past lockup should be inactive")
	}
	if LockupActive(nil, now) {
		t.Error("nil lockup should be inactive")
	}
	if RemainingLockup(past, now) != 0 {
		t.Error("expired lockup should have zero remaining")
	}
	if RemainingLockup(future, now) != time.Hour {
		t.Error("remaining lockup mismatch")
	}
}

func TestRound2(t *testing.T) {
	if !Round2(dec("1.005")).Equal(dec("1.01")) {
		t.Errorf("Round2(1.005) = %s", Round2(dec("1.005")).String())
	}
	if !Round2(dec("1.004")).Equal(dec("1.00")) {
		t.Errorf("Round2(1.004) = %s", Round2(dec("1.004")).String())
	}
}

func TestFloor2(t *testing.T) {
	cases := []struct{ in, want string }{
		{"100.005", "100"},
		{"100.009999", "100"},
		{"100.01", "100.01"},
		{"100", "100"},
	}
	for _, c := range cases {
		if got := Floor2(dec(c.in)); !got.Equal(dec(c.want)) {
			t.Errorf("Floor2(%s) = %s, want %s", c.in, got.String(), c.want)
		}
	}
}

func TestValidateCommitmentAmount(t *testing.T) {
	if err := ValidateCommitmentAmount(dec("100"), dec("1000")); err != nil {
		t.Errorf("valid amount rejected: %v", err)
	}
	if err := ValidateCommitmentAmount(dec("0"), dec("1000")); !errs.IsKind(err, errs.KindValidation) {
		t.Error("zero amount should be rejected")
	}
	if err := ValidateCommitmentAmount(dec("-5"), dec("1000")); !errs.IsKind(err, errs.KindValidation) {
		t.Error("negative amount should be rejected")
	}
	if err := ValidateCommitmentAmount(dec("2000"), dec("1000")); !errs.IsKind(err, errs.KindValidation) {
		t.Error("amount above max should be rejected")
	}
	// 手续费低于0.01
	if err := ValidateCommitmentAmount(dec("0.10"), dec("1000")); !errs.IsKind(err, errs.KindValidation) {
		t.Error("amount with sub-minimum fee should be rejected")
	}
}

func TestValidateBorrowAndRepayment(t *testing.T) {
	if err := ValidateBorrowAmount(dec("50"), dec("100")); err != nil {
		t.Errorf("valid borrow rejected: %v", err)
	}
	if err := ValidateBorrowAmount(dec("150"), dec("100")); !errs.IsKind(err, errs.KindValidation) {
		t.Error("borrow above available should be rejected")
	}
	if err := ValidateRepaymentAmount(dec("110"), dec("110")); err != nil {
		t.Errorf("full repayment rejected: %v", err)
	}
	if err := ValidateRepaymentAmount(dec("100"), dec("110")); !errs.IsKind(err, errs.KindValidation) {
		t.Error("partial repayment should be rejected")
	}
}
