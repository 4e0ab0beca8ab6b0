package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseNonNegativeAmount(t *testing.T) {
	got, err := ParseNonNegativeAmount("")
	if err != nil || !got.IsZero() {
		t.Fatalf("empty input: got %s err=%v", got, err)
	}
	got, err = ParseNonNegativeAmount("0")
	if err != nil || !got.IsZero() {
		t.Fatalf("zero input: got %s err=%v", got, err)
	}
	if _, err := ParseNonNegativeAmount("-3"); err == nil {
		t.Fatal("expected error for negative input")
	}
}

func TestCentsRoundTrip(t *testing.T) {
	for _, c := range []int64{0, 1, 99, 100, 123456} {
		if got := ToCents(FromCents(c)); got != c {
			t.Fatalf("ToCents(FromCents(%d)) = %d", c, got)
		}
	}
}

func TestRatio(t *testing.T) {
	d := decimal.RequireFromString
	if got := Ratio(d("1"), decimal.Zero); got != 0 {
		t.Fatalf("division by zero should be 0, got %v", got)
	}
	if got := Ratio(d("1"), d("3")); got != 33.3 {
		t.Fatalf("Ratio(1,3) = %v", got)
	}
	if got := ClampedRatio(d("250"), d("100")); got != 100 {
		t.Fatalf("ClampedRatio should cap at 100, got %v", got)
	}
}
