package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"500", "500"},
		{" 500 ", "500"},
		{"12.34", "12.34"},
		{"12,5", "12.5"},
		{"1 250", "1250"},
		{"1 250,75", "1250.75"},
		{"500 MRU", "500"},
		{"+42", "42"},
		{"-3", "-3"},
		{".5", "0.5"},
		{"7.", "7"},
		{"abc", "0"},
		{"", "0"},
		{"MRU 500", "0"},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in).String(); got != tc.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseAmountStrict(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"500", "500", nil},
		{"1 500,50", "1500.5", nil},
		{"0", "0", nil},
		{"", "", ErrInvalidAmount},
		{"abc", "", ErrInvalidAmount},
		{"500 MRU", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
		{"-10", "", ErrNegativeAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmountStrict(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ParseAmountStrict(%q) error = %v, want %v", tc.in, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAmountStrict(%q) unexpected error: %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Errorf("ParseAmountStrict(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
