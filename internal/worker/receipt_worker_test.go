package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tutordesk/internal/amqp"
	"tutordesk/internal/core"
	"tutordesk/internal/format"
	"tutordesk/internal/receipt"
	"tutordesk/internal/services"
	"tutordesk/internal/store"
	"tutordesk/internal/store/memory"
)

func setup(t *testing.T) (*ReceiptWorker, *services.Ledger, string) {
	t.Helper()
	dir := t.TempDir()
	ledger := services.NewLedger(memory.New(nil))
	f := format.MustNew("fr", "MRU", format.WithClock(func() time.Time {
		return time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	}))
	w, err := NewReceiptWorker(ledger, receipt.NewRenderer(), f, dir, nil)
	if err != nil {
		t.Fatalf("NewReceiptWorker: %v", err)
	}
	return w, ledger, dir
}

func pdfs(t *testing.T, dir string) []string {
	t.Helper()
	m, err := filepath.Glob(filepath.Join(dir, "*", "*.pdf"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return m
}

func TestHandleEventWritesAndRemovesReceipt(t *testing.T) {
	w, ledger, dir := setup(t)
	ctx := context.Background()

	sid, _, err := ledger.AddStudent(ctx, core.Student{Name: "Ahmed", Level: "BAC D"})
	if err != nil {
		t.Fatalf("add student: %v", err)
	}
	pid, _, err := ledger.AddPayment(ctx, core.Payment{StudentID: sid, Amount: "500", Month: "Mars"})
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}

	if err := w.HandleEvent(ctx, amqp.NewPaymentEvent(amqp.PaymentRecorded, pid, sid)); err != nil {
		t.Fatalf("recorded: %v", err)
	}
	files := pdfs(t, dir)
	if len(files) != 1 {
		t.Fatalf("expected one receipt, got %v", files)
	}
	want := filepath.Join(dir, pid, "Recu-Ahmed-Mars.pdf")
	if files[0] != want {
		t.Fatalf("receipt path = %s, want %s", files[0], want)
	}
	body, err := os.ReadFile(files[0])
	if err != nil || len(body) < 5 || string(body[:5]) != "%PDF-" {
		t.Fatalf("receipt is not a PDF (err=%v)", err)
	}

	// An update replaces the file rather than adding a second one.
	if _, err := ledger.UpdatePayment(ctx, pid, core.Payment{StudentID: sid, Amount: "600", Month: "Avril"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewPaymentEvent(amqp.PaymentUpdated, pid, sid)); err != nil {
		t.Fatalf("updated: %v", err)
	}
	files = pdfs(t, dir)
	if len(files) != 1 || files[0] != filepath.Join(dir, pid, "Recu-Ahmed-Avril.pdf") {
		t.Fatalf("unexpected files after update: %v", files)
	}

	if err := w.HandleEvent(ctx, amqp.NewPaymentEvent(amqp.PaymentDeleted, pid, "")); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	if files := pdfs(t, dir); len(files) != 0 {
		t.Fatalf("receipt should be removed, got %v", files)
	}
	if _, err := os.Stat(filepath.Join(dir, pid)); !os.IsNotExist(err) {
		t.Fatalf("payment dir should be removed, stat err = %v", err)
	}
}

func TestHandleEventStalePayment(t *testing.T) {
	w, _, dir := setup(t)
	if err := w.HandleEvent(context.Background(), amqp.NewPaymentEvent(amqp.PaymentRecorded, "gone", "")); err != nil {
		t.Fatalf("stale event should be acknowledged, got %v", err)
	}
	if files := pdfs(t, dir); len(files) != 0 {
		t.Fatalf("no receipt expected, got %v", files)
	}
}

func TestProcessBacklog(t *testing.T) {
	w, ledger, dir := setup(t)
	ctx := context.Background()

	sid, _, _ := ledger.AddStudent(ctx, core.Student{Name: "Fatima", Level: "Seconde"})
	for _, m := range []string{"Janvier", "Février"} {
		if _, _, err := ledger.AddPayment(ctx, core.Payment{StudentID: sid, Amount: "400", Month: m}); err != nil {
			t.Fatalf("add payment: %v", err)
		}
	}

	n, err := w.ProcessBacklog(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first backlog pass = %d, %v", n, err)
	}
	n, err = w.ProcessBacklog(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second backlog pass = %d, %v", n, err)
	}
	if files := pdfs(t, dir); len(files) != 2 {
		t.Fatalf("expected 2 receipts, got %v", files)
	}
}

// fixedLedger serves a fixed snapshot, for IDs no gateway here would mint.
type fixedLedger struct {
	snap core.Snapshot
}

func (l fixedLedger) Snapshot(context.Context) (core.Snapshot, error) { return l.snap, nil }

func (l fixedLedger) PaymentDetail(_ context.Context, id string) (core.Payment, core.Student, error) {
	p, ok := l.snap.PaymentByID(id)
	if !ok {
		return core.Payment{}, core.Student{}, store.ErrNotFound
	}
	s, _ := l.snap.StudentByID(p.StudentID)
	return p, s, nil
}

func TestRemoveKeepsReceiptsOfOtherIDs(t *testing.T) {
	dir := t.TempDir()
	student := core.Student{ID: "s1", Name: "Ahmed", Level: "BAC D"}
	ids := []string{"1", "1_2", "1*", "../escape", "a/b"}
	var payments []core.Payment
	for _, id := range ids {
		payments = append(payments, core.Payment{ID: id, StudentID: "s1", Amount: "100", Month: "Mars"})
	}
	ledger := fixedLedger{snap: core.Snapshot{Students: []core.Student{student}, Payments: payments}}
	w, err := NewReceiptWorker(ledger, receipt.NewRenderer(), format.MustNew("fr", "MRU"), dir, nil)
	if err != nil {
		t.Fatalf("NewReceiptWorker: %v", err)
	}
	ctx := context.Background()

	n, err := w.ProcessBacklog(ctx)
	if err != nil || n != len(ids) {
		t.Fatalf("backlog = %d, %v", n, err)
	}
	if files := pdfs(t, dir); len(files) != len(ids) {
		t.Fatalf("expected %d receipts inside %s, got %v", len(ids), dir, files)
	}

	if err := w.HandleEvent(ctx, amqp.NewPaymentEvent(amqp.PaymentDeleted, "1", "")); err != nil {
		t.Fatalf("deleted: %v", err)
	}
	for _, id := range ids[1:] {
		files, err := w.existing(id)
		if err != nil || len(files) != 1 {
			t.Fatalf("receipt of %q = %v, %v", id, files, err)
		}
	}
	if files, _ := w.existing("1"); len(files) != 0 {
		t.Fatalf("receipt of 1 should be gone, got %v", files)
	}
}
