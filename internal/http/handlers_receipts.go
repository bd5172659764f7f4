package http

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	applog "tutordesk/internal/log"
	"tutordesk/internal/receipt"
)

type receiptView struct {
	page
	Receipt receipt.Receipt
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadReceipt(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "receipt.html", receiptView{
		page:    page{Title: "Reçu " + rec.Number, Active: "payments"},
		Receipt: rec,
	})
}

// handleReceiptPDF streams the receipt as a PDF attachment.
func (s *Server) handleReceiptPDF(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadReceipt(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, rec); err != nil {
		s.reqLog.LogError(r.Context(), "Receipt rendering failed", err, applog.ComponentReceipts, applog.OpRender,
			applog.NewFields().WithPayment(rec.PaymentID, "", rec.Month, ""))
		http.Error(w, "Impossible de générer le reçu", http.StatusInternalServerError)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Receipt generated",
		applog.FieldComponent, applog.ComponentReceipts,
		applog.FieldPaymentID, rec.PaymentID,
		applog.FieldReceiptNumber, rec.Number)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.FileName()}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) loadReceipt(w http.ResponseWriter, r *http.Request) (receipt.Receipt, bool) {
	p, st, err := s.ledger.PaymentDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.ComponentReceipts, applog.OpRead, err)
		return receipt.Receipt{}, false
	}
	return receipt.Build(p, st, s.formatter), true
}
