package opticalmath

import "testing"

func TestDBmOneFractionDigit(t *testing.T) {
	// 0.5mW scaled: whole=0 frac=5 -> 5*1000=5000 -> 10*log10(5000)-40
	got := DBm(0, 5)
	if got != "-3.01" {
		t.Fatalf("got %q", got)
	}
}

func TestDBmSaturatesToInf(t *testing.T) {
	if got := DBm(6, 6000); got != "inf" {
		t.Fatalf("got %q, want inf", got)
	}
}

func TestDBmFourDigitFraction(t *testing.T) {
	got := DBm(1, 2500)
	if got == "" {
		t.Fatal("expected a value")
	}
}
