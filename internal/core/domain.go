package core

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CourseGroup   CourseType = "group"
	CoursePrivate CourseType = "private"
)

// UnspecifiedMonth groups payments recorded without a month label.
const UnspecifiedMonth = "Non spécifié"

// DateLayout is the wire layout used by forms, stores and messages.
const DateLayout = "2006-01-02"

type (
	CourseType string

	Date struct {
		time.Time
	}

	Student struct {
		ID             string     `json:"id"`
		Name           string     `json:"name" validate:"notblank"`
		Level          string     `json:"level" validate:"notblank"`
		EnrollmentDate Date       `json:"enrollment_date"`
		CourseType     CourseType `json:"course_type" validate:"omitempty,oneof=group private"`
	}

	// Payment is a single month's payment for one student. Amount keeps the
	// stored text; use Value for the coerced decimal.
	Payment struct {
		ID          string `json:"id"`
		StudentID   string `json:"student_id"`
		Amount      string `json:"amount"`
		Month       string `json:"month"`
		Year        int    `json:"year,omitempty"`
		PaymentDate Date   `json:"payment_date"`
	}

	// Snapshot is the set of collections a caller renders and guards against.
	Snapshot struct {
		Students []Student
		Payments []Payment
		Levels   []string
	}
)

var (
	ErrInvalidDate = errors.New("invalid date")

	// DefaultLevels is used when no level list is configured.
	DefaultLevels = []string{"BAC D", "BAC C", "BAC A", "BAC B", "Seconde", "Première", "Terminale", "Autre"}
)

var months = [12]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

// Months returns the twelve month labels in calendar order.
func Months() []string {
	out := make([]string, len(months))
	copy(out, months[:])
	return out
}

// MonthLabel returns the label for m.
func MonthLabel(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return months[m-1]
}

// IsMonthLabel reports whether s is exactly one of the twelve labels.
func IsMonthLabel(s string) bool {
	for _, m := range months {
		if m == s {
			return true
		}
	}
	return false
}

// ParseCourseType accepts the canonical values and the legacy French ones.
func ParseCourseType(s string) CourseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "group", "classe":
		return CourseGroup
	case "private", "particulier":
		return CoursePrivate
	default:
		return CourseType(strings.TrimSpace(s))
	}
}

// Label is the French display name.
func (c CourseType) Label() string {
	switch c {
	case CoursePrivate:
		return "Particulier"
	case CourseGroup, "":
		return "Classe"
	default:
		return string(c)
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// timeSuffix is the clock part stores append to a date, such as
// "T10:00:00Z" or " 00:00:00+00".
var timeSuffix = regexp.MustCompile(`^[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}(:?\d{2})?)?$`)

// ParseDate parses a YYYY-MM-DD value, dropping a trailing time of day.
// Blank input yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) > len(DateLayout) {
		if !timeSuffix.MatchString(s[len(DateLayout):]) {
			return Date{}, ErrInvalidDate
		}
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value returns the coerced amount; unparseable text counts as zero.
func (p Payment) Value() decimal.Decimal {
	return ParseAmount(p.Amount)
}

// StudentByID looks up a student in the snapshot.
func (s Snapshot) StudentByID(id string) (Student, bool) {
	for _, st := range s.Students {
		if st.ID == id {
			return st, true
		}
	}
	return Student{}, false
}

// PaymentByID looks up a payment in the snapshot.
func (s Snapshot) PaymentByID(id string) (Payment, bool) {
	for _, p := range s.Payments {
		if p.ID == id {
			return p, true
		}
	}
	return Payment{}, false
}
