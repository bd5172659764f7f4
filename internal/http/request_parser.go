// Package http serves the tutoring desk web interface.
//
// This file turns request bodies into candidate records. Bodies may be form
// encoded, as sent by plain forms and HTMX, or JSON.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tutordesk/internal/core"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("malformed request body")

// RequestBodyParser reads a request body once and exposes its fields.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object, as a form otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized field value, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON reports whether the body was decoded as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseStudent reads name, level, enrollment_date and course_type. Defaults
// and validation are left to the ledger.
func parseStudent(p *RequestBodyParser) (core.Student, error) {
	if err := p.Parse(); err != nil {
		return core.Student{}, errBadRequest
	}
	enrolled, err := core.ParseDate(p.Get("enrollment_date"))
	if err != nil {
		return core.Student{}, err
	}
	return core.Student{
		Name:           p.Get("name"),
		Level:          p.Get("level"),
		EnrollmentDate: enrolled,
		CourseType:     core.CourseType(p.Get("course_type")),
	}, nil
}

// parsePayment reads student_id, amount, month, year and payment_date. A
// blank year is left at zero for the ledger to derive.
func parsePayment(p *RequestBodyParser) (core.Payment, error) {
	if err := p.Parse(); err != nil {
		return core.Payment{}, errBadRequest
	}
	paid, err := core.ParseDate(p.Get("payment_date"))
	if err != nil {
		return core.Payment{}, err
	}
	year := 0
	if v := p.Get("year"); v != "" {
		year, err = strconv.Atoi(v)
		if err != nil || !core.ValidYear(year) {
			return core.Payment{}, &core.ValidationError{Field: "year", Reason: core.ReasonInvalidYear}
		}
	}
	return core.Payment{
		StudentID:   p.Get("student_id"),
		Amount:      p.Get("amount"),
		Month:       p.Get("month"),
		Year:        year,
		PaymentDate: paid,
	}, nil
}
