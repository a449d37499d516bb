package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundMoney(t *testing.T) {
	t.Parallel()

	got := RoundMoney(decimal.RequireFromString("10.005"))
	if !got.Equal(decimal.RequireFromString("10.01")) {
		t.Fatalf("expected 10.01 got %s", got)
	}
}

func TestRoundWeight(t *testing.T) {
	t.Parallel()

	got := RoundWeight(decimal.RequireFromString("1.23456"))
	if !got.Equal(decimal.RequireFromString("1.235")) {
		t.Fatalf("expected 1.235 got %s", got)
	}
}

func TestWithinTolerance(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"exact", "100.00", "100.00", true},
		{"sub cent", "100.00", "100.009", true},
		{"one cent", "100.00", "100.01", false},
		{"negative diff", "99.995", "100.00", true},
		{"large gap", "50.00", "100.00", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := decimal.RequireFromString(tc.a)
			b := decimal.RequireFromString(tc.b)
			if got := WithinTolerance(a, b); got != tc.want {
				t.Fatalf("WithinTolerance(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestIsSettled(t *testing.T) {
	t.Parallel()

	if !IsSettled(decimal.RequireFromString("-0.005")) {
		t.Fatal("sub-cent residual should settle")
	}
	if IsSettled(decimal.RequireFromString("0.01")) {
		t.Fatal("one cent residual should not settle")
	}
}
