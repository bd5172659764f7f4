// Package format turns domain values into display strings: amounts with the
// configured currency, long French dates, text direction and receipt numbers.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tutordesk/internal/core"
)

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

const (
	DefaultLocale   = "fr"
	DefaultCurrency = "MRU"
)

// Direction is the writing direction of a piece of text.
type Direction string

// Formatter renders amounts and receipt numbers. It is safe for concurrent use.
type Formatter struct {
	printer  *message.Printer
	currency string
	now      func() time.Time
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) { f.now = now }
}

// New builds a Formatter for a BCP 47 locale and a currency code.
func New(locale, currency string, opts ...Option) (*Formatter, error) {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	f := &Formatter{
		printer:  message.NewPrinter(tag),
		currency: strings.ToUpper(strings.TrimSpace(currency)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// MustNew is New for static, known-good arguments.
func MustNew(locale, currency string, opts ...Option) *Formatter {
	f, err := New(locale, currency, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// Currency renders a grouped whole amount followed by the currency code,
// e.g. "12 500 MRU". Fractions are rounded half away from zero.
func (f *Formatter) Currency(amount decimal.Decimal) string {
	n := amount.Round(0).IntPart()
	return f.printer.Sprintf("%d", n) + " " + f.currency
}

// CurrencyText coerces a stored amount before rendering it.
func (f *Formatter) CurrencyText(amount string) string {
	return f.Currency(core.ParseAmount(amount))
}

// CurrencyCode returns the configured suffix.
func (f *Formatter) CurrencyCode() string { return f.currency }

// Now returns the formatter's current time.
func (f *Formatter) Now() time.Time { return f.now() }

// ReceiptNumber numbers a receipt for paymentID with today's date.
func (f *Formatter) ReceiptNumber(paymentID string) string {
	return ReceiptNumber(paymentID, f.now())
}

// ReceiptNumber returns REC-{YYYYMMDD}-{last six characters of paymentID}.
// The date is the generation date, so the same payment gets a different
// number on another day.
func ReceiptNumber(paymentID string, now time.Time) string {
	r := []rune(paymentID)
	if len(r) > 6 {
		r = r[len(r)-6:]
	}
	return fmt.Sprintf("REC-%04d%02d%02d-%s", now.Year(), int(now.Month()), now.Day(), string(r))
}

// FormatDate renders a long French date such as "5 mars 2024". An unset
// date renders as "".
func FormatDate(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	month := strings.ToLower(core.MonthLabel(d.Time.Month()))
	return fmt.Sprintf("%d %s %d", d.Day(), month, d.Year())
}

// FormatDateString parses a YYYY-MM-DD value and renders it like FormatDate.
// Blank or invalid input renders as "".
func FormatDateString(s string) string {
	d, err := core.ParseDate(s)
	if err != nil {
		return ""
	}
	return FormatDate(d)
}

// DetectDirection reports RTL when text holds any rune of the Arabic block.
func DetectDirection(text string) Direction {
	for _, r := range text {
		if r >= 0x0600 && r <= 0x06FF {
			return RTL
		}
	}
	return LTR
}
