package domain

import "testing"

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		minor    int64
		currency string
		want     string
	}{
		{name: "whole dollars", minor: 500, currency: "usd", want: "$5.00"},
		{name: "cents", minor: 1999, currency: "USD", want: "$19.99"},
		{name: "grouping", minor: 123450, currency: "usd", want: "$1,234.50"},
		{name: "zero", minor: 0, currency: "usd", want: "$0.00"},
		{name: "negative", minor: -250, currency: "usd", want: "$-2.50"},
		{name: "euro", minor: 750, currency: "eur", want: "€7.50"},
		{name: "no symbol", minor: 500, currency: "sek", want: "SEK 5.00"},
		{name: "unknown code", minor: 500, currency: "zzz", want: "ZZZ 5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FormatAmount(tt.minor, tt.currency)
			if got != tt.want {
				t.Errorf("FormatAmount(%d, %q) = %q, want %q", tt.minor, tt.currency, got, tt.want)
			}
		})
	}
}

func TestFormatAmountDeterministic(t *testing.T) {
	t.Parallel()

	for _, minor := range []int64{1, 99, 100, 12345, 999999} {
		first := FormatAmount(minor, "usd")
		second := FormatAmount(minor, "usd")
		if first != second {
			t.Fatalf("FormatAmount(%d) not deterministic: %q != %q", minor, first, second)
		}
	}
}
