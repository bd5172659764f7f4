package format

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tutordesk/internal/core"
)

// spaces folds the locale's grouping separators into plain spaces.
func spaces(s string) string {
	return strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(s)
}

func TestReceiptNumber(t *testing.T) {
	day := time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC)
	cases := []struct {
		id   string
		want string
	}{
		{"123456789", "REC-20240305-456789"},
		{"42", "REC-20240305-42"},
		{"018f3a2b-7c4d-7e00-8000-00000000abcd", "REC-20240305-00abcd"},
	}
	for _, tc := range cases {
		if got := ReceiptNumber(tc.id, day); got != tc.want {
			t.Errorf("ReceiptNumber(%q) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestFormatterReceiptNumberUsesClock(t *testing.T) {
	f := MustNew("fr", "MRU", WithClock(func() time.Time {
		return time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	}))
	if got := f.ReceiptNumber("123456789"); got != "REC-20240305-456789" {
		t.Fatalf("got %q", got)
	}
}

func TestCurrency(t *testing.T) {
	f := MustNew("fr", "MRU")
	cases := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.NewFromInt(0), "0 MRU"},
		{decimal.NewFromInt(500), "500 MRU"},
		{decimal.NewFromInt(1234567), "1 234 567 MRU"},
		{decimal.RequireFromString("1499.5"), "1 500 MRU"},
		{decimal.RequireFromString("1499.4"), "1 499 MRU"},
	}
	for _, tc := range cases {
		if got := spaces(f.Currency(tc.in)); got != tc.want {
			t.Errorf("Currency(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := spaces(f.CurrencyText("abc")); got != "0 MRU" {
		t.Errorf("CurrencyText(abc) = %q", got)
	}
}

func TestNewRejectsBadLocale(t *testing.T) {
	if _, err := New("not a locale!!", "MRU"); err == nil {
		t.Fatalf("expected error")
	}
	f, err := New("", "")
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if f.CurrencyCode() != DefaultCurrency {
		t.Fatalf("currency = %q", f.CurrencyCode())
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(core.NewDate(2024, 3, 5)); got != "5 mars 2024" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDate(core.NewDate(2023, 8, 15)); got != "15 août 2023" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDate(core.Date{}); got != "" {
		t.Fatalf("zero date should render empty, got %q", got)
	}
	if got := FormatDateString("2024-12-01"); got != "1 décembre 2024" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDateString(""); got != "" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDateString("garbage"); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestDetectDirection(t *testing.T) {
	cases := map[string]Direction{
		"Ahmed Ould":      LTR,
		"":                LTR,
		"محمد بوحمادي":    RTL,
		"Ahmed محمد":      RTL,
		"Élève Française": LTR,
	}
	for in, want := range cases {
		if got := DetectDirection(in); got != want {
			t.Errorf("DetectDirection(%q) = %q, want %q", in, got, want)
		}
	}
}
