package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tutordesk/internal/core"
	"tutordesk/internal/format"
	applog "tutordesk/internal/log"
	"tutordesk/internal/store"
)

// parseYear reads the year query parameter, falling back to the current year.
func parseYear(r *http.Request, current int) int {
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			return y
		}
	}
	return current
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func generateRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "req_" + uuid.NewString()
	}
	return "req_" + id.String()
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (s *Server) funcMap() template.FuncMap {
	return template.FuncMap{
		"currency":     func(d decimal.Decimal) string { return s.formatter.Currency(d) },
		"amount":       func(a string) string { return s.formatter.CurrencyText(a) },
		"longDate":     format.FormatDate,
		"dir":          func(text string) string { return string(format.DetectDirection(text)) },
		"courseLabel":  func(c core.CourseType) string { return c.Label() },
		"monthOrBlank": monthOrBlank,
	}
}

func monthOrBlank(m string) string {
	if strings.TrimSpace(m) == "" {
		return core.UnspecifiedMonth
	}
	return m
}

// errorStatus maps ledger failures onto HTTP status codes. A missing record
// is checked before the storage wrapper it travels in.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrReferential):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var fieldLabels = map[string]string{
	"name":            "le nom",
	"level":           "la classe",
	"student_id":      "l'élève",
	"amount":          "le montant",
	"month":           "le mois",
	"course_type":     "le type de cours",
	"enrollment_date": "la date d'inscription",
	"payment_date":    "la date de versement",
	"year":            "l'année",
}

// errorMessage is the French message shown to the user for a failed action.
func errorMessage(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		field := fieldLabels[ve.Field]
		if field == "" {
			field = ve.Field
		}
		switch ve.Reason {
		case core.ReasonRequired:
			return "Veuillez renseigner " + field + "."
		case core.ReasonInvalidAmount:
			return "Le montant est invalide."
		case core.ReasonNegativeAmount:
			return "Le montant ne peut pas être négatif."
		case core.ReasonUnknownMonth:
			return "Le mois est inconnu."
		case core.ReasonInvalidCourseType:
			return "Le type de cours est invalide."
		case core.ReasonUnknownStudent:
			return "L'élève sélectionné n'existe pas."
		case core.ReasonInvalidYear:
			return fmt.Sprintf("L'année doit être comprise entre %d et %d.", core.MinYear, core.MaxYear)
		default:
			return "Valeur invalide pour " + field + "."
		}
	}
	var re *core.ReferentialError
	if errors.As(err, &re) {
		return fmt.Sprintf("Impossible de supprimer cet élève : %d paiement(s) enregistré(s).", re.Payments)
	}
	switch {
	case errors.Is(err, errBadRequest):
		return "Requête invalide."
	case errors.Is(err, core.ErrInvalidDate):
		return "La date est invalide."
	case errors.Is(err, store.ErrNotFound):
		return "Enregistrement introuvable."
	case errors.Is(err, core.ErrStorage), errors.Is(err, context.DeadlineExceeded):
		return "Le stockage ne répond pas, veuillez réessayer."
	default:
		return "Une erreur inattendue est survenue."
	}
}

// page carries the values every full page template reads.
type page struct {
	Title  string
	Active string
	Error  string
}

// fail logs a failed action and answers with an error fragment for HTMX or
// an error page otherwise.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, component, op string, err error) {
	ctx := r.Context()
	status := errorStatus(err)
	msg := errorMessage(err)

	switch status {
	case http.StatusUnprocessableEntity, http.StatusConflict, http.StatusBadRequest:
		kind := applog.ErrorTypeValidation
		if status == http.StatusConflict {
			kind = applog.ErrorTypeConflict
		}
		s.reqLog.LogRejected(ctx, component, op, kind, core.ReasonOf(err), applog.NewFields())
	case http.StatusNotFound:
		s.reqLog.LogRejected(ctx, component, op, applog.ErrorTypeNotFound, "", applog.NewFields())
	default:
		kind := applog.ErrorTypeInternal
		if errors.Is(err, core.ErrStorage) {
			kind = applog.ErrorTypeDatabase
		}
		s.reqLog.LogError(ctx, "Request failed", err, component, op, applog.NewFields().WithErrorType(kind, ""))
	}

	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}
	s.render(w, r, status, "error.html", page{Title: "Erreur", Error: msg})
}

const staleMessage = "Enregistré, mais la liste n'a pas pu être actualisée. Rechargez la page avant de recommencer."

// savedStale answers a write that was stored when the list refresh after it
// failed. A plain post is redirected as on success. HTMX clients keep their
// rows, get the write's events and a warning instead of the success toast.
func (s *Server) savedStale(w http.ResponseWriter, r *http.Request, list, component, op string, err error, b *HTMXResponseBuilder) {
	ctx := r.Context()
	applog.FromContext(ctx).WarnContext(ctx, "Write saved, list not refreshed",
		applog.FieldComponent, component,
		applog.FieldOperation, op,
		applog.FieldError, err.Error())

	if !isHTMX(r) {
		http.Redirect(w, r, list, http.StatusSeeOther)
		return
	}
	b.TriggerNotification(NotificationWarning, staleMessage, 8000).
		Header("HX-Reswap", "none").
		Write(w)
}
