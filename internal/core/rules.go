package core

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// custom validation tags
const (
	notBlankTag   = "notblank"
	amountTag     = "amount"
	monthLabelTag = "month_label"
)

func init() {
	validate = validator.New()

	// Report json names so reasons line up with form and message fields.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(amountTag, amountValidation)
	_ = validate.RegisterValidation(monthLabelTag, monthLabelValidation)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func amountValidation(fl validator.FieldLevel) bool {
	_, err := ParseAmountStrict(fl.Field().String())
	return err == nil
}

func monthLabelValidation(fl validator.FieldLevel) bool {
	return IsMonthLabel(strings.TrimSpace(fl.Field().String()))
}

// Bounds of an explicit payment year. Zero means unknown and is allowed.
const (
	MinYear = 1900
	MaxYear = 9999
)

// ValidYear reports whether y is an acceptable explicit payment year.
func ValidYear(y int) bool { return y >= MinYear && y <= MaxYear }

// paymentCandidate adds the write-only checks on top of Payment's own tags.
type paymentCandidate struct {
	StudentID string `json:"student_id" validate:"notblank"`
	Amount    string `json:"amount" validate:"notblank,amount"`
	Month     string `json:"month" validate:"notblank,month_label"`
	Year      int    `json:"year" validate:"omitempty,min=1900,max=9999"`
}

// toValidationError converts the first validator failure into a ValidationError.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	reason := ReasonRequired
	switch fe.Tag() {
	case amountTag:
		reason = ReasonInvalidAmount
		if _, perr := ParseAmountStrict(fe.Value().(string)); errors.Is(perr, ErrNegativeAmount) {
			reason = ReasonNegativeAmount
		}
	case monthLabelTag:
		reason = ReasonUnknownMonth
	case "oneof":
		reason = ReasonInvalidCourseType
	case "min", "max":
		if fe.Field() == "year" {
			reason = ReasonInvalidYear
		}
	}
	return &ValidationError{Field: fe.Field(), Reason: reason}
}

// ValidateStudent checks a create or update candidate.
func ValidateStudent(s Student) error {
	if err := validate.Struct(s); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidatePayment checks a create or update candidate. When students is
// non-nil the referenced student must be present in it.
func ValidatePayment(p Payment, students []Student) error {
	c := paymentCandidate{StudentID: p.StudentID, Amount: p.Amount, Month: p.Month, Year: p.Year}
	if err := validate.Struct(c); err != nil {
		return toValidationError(err)
	}
	if students != nil && !containsStudent(students, p.StudentID) {
		return &ValidationError{Field: "student_id", Reason: ReasonUnknownStudent}
	}
	return nil
}

// CheckStudentDeletion blocks deleting a student that payments still reference.
func CheckStudentDeletion(payments []Payment, studentID string) error {
	n := 0
	for _, p := range payments {
		if p.StudentID == studentID {
			n++
		}
	}
	if n > 0 {
		return &ReferentialError{StudentID: studentID, Payments: n}
	}
	return nil
}

// PrepareStudent trims and defaults a candidate, then validates it.
// EnrollmentDate defaults to the day of now; CourseType defaults to group.
func PrepareStudent(s Student, now time.Time) (Student, error) {
	s.Name = strings.TrimSpace(s.Name)
	s.Level = strings.TrimSpace(s.Level)
	s.CourseType = ParseCourseType(string(s.CourseType))
	if s.EnrollmentDate.IsEmpty() {
		s.EnrollmentDate = DateOf(now)
	}
	if err := ValidateStudent(s); err != nil {
		return Student{}, err
	}
	return s, nil
}

// PreparePayment trims and defaults a candidate, validates it, and stores the
// amount in canonical form. PaymentDate defaults to the day of now and Year
// to the year of PaymentDate.
func PreparePayment(p Payment, students []Student, now time.Time) (Payment, error) {
	p.StudentID = strings.TrimSpace(p.StudentID)
	p.Month = strings.TrimSpace(p.Month)
	if err := ValidatePayment(p, students); err != nil {
		return Payment{}, err
	}
	amount, err := NormalizeAmount(p.Amount)
	if err != nil {
		return Payment{}, &ValidationError{Field: "amount", Reason: ReasonInvalidAmount}
	}
	p.Amount = amount
	if p.PaymentDate.IsEmpty() {
		p.PaymentDate = DateOf(now)
	}
	if p.Year == 0 {
		p.Year = p.PaymentDate.Year()
		if !ValidYear(p.Year) {
			return Payment{}, &ValidationError{Field: "payment_date", Reason: ReasonInvalidYear}
		}
	}
	return p, nil
}

func containsStudent(students []Student, id string) bool {
	for _, s := range students {
		if s.ID == id {
			return true
		}
	}
	return false
}
