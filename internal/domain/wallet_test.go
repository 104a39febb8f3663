package domain

import (
	"testing"

	"github.com/alexe13/roboquant/pkg/quant"
)

func TestWallet_DepositWithdraw(t *testing.T) {
	w := NewWallet()

	w.Deposit("USD", quant.ToAmountMicros(100))
	if w.Get("USD") != quant.ToAmountMicros(100) {
		t.Errorf("expected 100, got %v", w.Get("USD"))
	}

	w.Withdraw("USD", quant.ToAmountMicros(30))
	if w.Get("USD") != quant.ToAmountMicros(70) {
		t.Errorf("expected 70, got %v", w.Get("USD"))
	}

	// No implicit conversion: EUR bucket is independent
	w.Deposit("EUR", quant.ToAmountMicros(5))
	if got := w.Currencies(); len(got) != 2 || got[0] != "EUR" || got[1] != "USD" {
		t.Errorf("unexpected currencies: %v", got)
	}
}

func TestWallet_SignedAdd(t *testing.T) {
	w := NewWallet()
	w.Add("USD", quant.ToAmountMicros(-50)) // margin debit below zero is legal
	if w.Get("USD") != quant.ToAmountMicros(-50) {
		t.Errorf("expected -50, got %v", w.Get("USD"))
	}

	w.Add("USD", quant.ToAmountMicros(50))
	if !w.IsEmpty() {
		t.Error("zero bucket should be dropped")
	}
}

func TestWallet_WithdrawPanic_Insufficient(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for insufficient balance")
		}
	}()

	w := NewWallet()
	w.Deposit("USD", quant.ToAmountMicros(10))
	w.Withdraw("USD", quant.ToAmountMicros(20)) // Should panic
}

func TestWallet_DepositPanic_Negative(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for negative deposit")
		}
	}()

	NewWallet().Deposit("USD", -1)
}

func TestWallet_VerifyNonNegativePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for negative bucket")
		}
	}()

	w := NewWallet()
	w.Add("USD", -1)
	w.VerifyNonNegative()
}

func TestWallet_CloneIsIndependent(t *testing.T) {
	w := NewWallet()
	w.Deposit("USD", quant.ToAmountMicros(100))

	c := w.Clone()
	c.Add("USD", quant.ToAmountMicros(-100))

	if w.Get("USD") != quant.ToAmountMicros(100) {
		t.Error("clone mutation leaked into source wallet")
	}
}
