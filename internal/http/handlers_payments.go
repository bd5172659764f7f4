package http

import (
	"errors"
	"net/http"

	"tutordesk/internal/core"
	applog "tutordesk/internal/log"
)

// paymentRow is a payment with the student it belongs to. Known is false
// for a payment whose student was removed from the backing store.
type paymentRow struct {
	Payment core.Payment
	Student core.Student
	Known   bool
}

func paymentRows(snap core.Snapshot, payments []core.Payment) []paymentRow {
	rows := make([]paymentRow, 0, len(payments))
	for _, p := range payments {
		st, ok := snap.StudentByID(p.StudentID)
		rows = append(rows, paymentRow{Payment: p, Student: st, Known: ok})
	}
	return rows
}

type paymentsView struct {
	page
	Query    string
	Rows     []paymentRow
	Total    int
	Students []core.Student
	Months   []string
	Edit     core.Payment
	Editing  bool
	Year     int
	Today    string
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, applog.ComponentPayments, applog.OpList, err)
		return
	}

	now := s.formatter.Now()
	q := sanitizeInput(r.URL.Query().Get("q"))
	view := paymentsView{
		page:     page{Title: "Paiements", Active: "payments"},
		Query:    q,
		Rows:     paymentRows(snap, core.FilterPayments(snap.Payments, snap.Students, q)),
		Total:    len(snap.Payments),
		Students: snap.Students,
		Months:   core.Months(),
		Year:     now.Year(),
		Today:    now.Format(core.DateLayout),
	}
	if id := r.URL.Query().Get("edit"); id != "" {
		view.Edit, view.Editing = snap.PaymentByID(id)
	} else if sid := r.URL.Query().Get("student"); sid != "" {
		view.Edit.StudentID = sid
	}

	if isHTMX(r) && r.Header.Get("HX-Target") == "payment-rows" {
		s.writePaymentRows(w, r, NewHTMXResponse(), view.Rows)
		return
	}
	s.render(w, r, http.StatusOK, "payments.html", view)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	p, err := parsePayment(NewRequestBodyParser(w, r))
	if err != nil {
		s.fail(w, r, applog.ComponentPayments, applog.OpParse, err)
		return
	}

	id, snap, err := s.ledger.AddPayment(r.Context(), p)
	if err != nil && !errors.Is(err, core.ErrStaleSnapshot) {
		s.fail(w, r, applog.ComponentPayments, applog.OpCreate, err)
		return
	}
	s.reqLog.LogPaymentRecorded(r.Context(), applog.OpCreate, id, p.StudentID, p.Month, p.Amount)

	b := NewHTMXResponse().TriggerPaymentSaved(id, p.StudentID).TriggerFormReset()
	if err != nil {
		s.savedStale(w, r, "/payments", applog.ComponentPayments, applog.OpCreate, err, b)
		return
	}
	s.paymentsChanged(w, r, snap, b.TriggerSuccessNotification("Paiement enregistré."))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := parsePayment(NewRequestBodyParser(w, r))
	if err != nil {
		s.fail(w, r, applog.ComponentPayments, applog.OpParse, err)
		return
	}

	snap, err := s.ledger.UpdatePayment(r.Context(), id, p)
	if err != nil && !errors.Is(err, core.ErrStaleSnapshot) {
		s.fail(w, r, applog.ComponentPayments, applog.OpUpdate, err)
		return
	}
	s.reqLog.LogPaymentRecorded(r.Context(), applog.OpUpdate, id, p.StudentID, p.Month, p.Amount)

	b := NewHTMXResponse().TriggerPaymentSaved(id, p.StudentID).TriggerFormReset()
	if err != nil {
		s.savedStale(w, r, "/payments", applog.ComponentPayments, applog.OpUpdate, err, b)
		return
	}
	s.paymentsChanged(w, r, snap, b.TriggerSuccessNotification("Paiement modifié."))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := s.ledger.DeletePayment(r.Context(), id)
	if err != nil && !errors.Is(err, core.ErrStaleSnapshot) {
		s.fail(w, r, applog.ComponentPayments, applog.OpDelete, err)
		return
	}
	s.reqLog.LogPaymentRecorded(r.Context(), applog.OpDelete, id, "", "", "")

	b := NewHTMXResponse().TriggerPaymentDeleted(id)
	if err != nil {
		s.savedStale(w, r, "/payments", applog.ComponentPayments, applog.OpDelete, err, b)
		return
	}
	s.paymentsChanged(w, r, snap, b.TriggerSuccessNotification("Paiement supprimé."))
}

func (s *Server) paymentsChanged(w http.ResponseWriter, r *http.Request, snap core.Snapshot, b *HTMXResponseBuilder) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/payments", http.StatusSeeOther)
		return
	}
	s.writePaymentRows(w, r, b, paymentRows(snap, snap.Payments))
}

func (s *Server) writePaymentRows(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, rows []paymentRow) {
	body, err := s.renderFragment("payment_rows", rows)
	if err != nil {
		s.reqLog.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, "payment_rows", applog.NewFields())
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	b.BodyHTML(body).Write(w)
}
