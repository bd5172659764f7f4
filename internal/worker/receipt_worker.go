package worker

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"tutordesk/internal/amqp"
	"tutordesk/internal/core"
	"tutordesk/internal/format"
	"tutordesk/internal/receipt"
	"tutordesk/internal/store"
)

// Ledger is the read side the worker needs.
type Ledger interface {
	PaymentDetail(ctx context.Context, paymentID string) (core.Payment, core.Student, error)
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

// ReceiptWorker keeps one PDF receipt per payment, each in its own
// subdirectory of dir.
type ReceiptWorker struct {
	ledger    Ledger
	renderer  *receipt.Renderer
	formatter *format.Formatter
	dir       string
	logger    *slog.Logger
}

func NewReceiptWorker(ledger Ledger, renderer *receipt.Renderer, formatter *format.Formatter, dir string, logger *slog.Logger) (*ReceiptWorker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipt dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptWorker{
		ledger:    ledger,
		renderer:  renderer,
		formatter: formatter,
		dir:       dir,
		logger:    logger,
	}, nil
}

// HandleEvent renders or removes the receipt an event refers to. A payment
// that no longer exists is not an error: the event is stale.
func (w *ReceiptWorker) HandleEvent(ctx context.Context, ev *amqp.PaymentEvent) error {
	switch ev.Kind {
	case amqp.PaymentDeleted:
		return w.remove(ctx, ev.PaymentID)
	case amqp.PaymentRecorded, amqp.PaymentUpdated:
		p, s, err := w.ledger.PaymentDetail(ctx, ev.PaymentID)
		if errors.Is(err, store.ErrNotFound) {
			w.logger.WarnContext(ctx, "Payment gone before its receipt was written", "payment_id", ev.PaymentID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load payment %s: %w", ev.PaymentID, err)
		}
		if err := w.remove(ctx, ev.PaymentID); err != nil {
			return err
		}
		_, err = w.write(ctx, p, s)
		return err
	default:
		return fmt.Errorf("unsupported event kind %q", ev.Kind)
	}
}

// ProcessBacklog writes receipts for payments that have none yet, covering
// events lost while the worker was down. It returns how many were written.
func (w *ReceiptWorker) ProcessBacklog(ctx context.Context) (int, error) {
	snap, err := w.ledger.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, p := range snap.Payments {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		existing, err := w.existing(p.ID)
		if err != nil {
			return written, err
		}
		if len(existing) > 0 {
			continue
		}
		s, _ := snap.StudentByID(p.StudentID)
		if _, err := w.write(ctx, p, s); err != nil {
			w.logger.ErrorContext(ctx, "Backlog receipt failed", "payment_id", p.ID, "error", err)
			continue
		}
		written++
	}
	if written > 0 {
		w.logger.InfoContext(ctx, "Backlog receipts written", "count", written)
	}
	return written, nil
}

func (w *ReceiptWorker) write(ctx context.Context, p core.Payment, s core.Student) (string, error) {
	rec := receipt.Build(p, s, w.formatter)
	dir := w.paymentDir(p.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create payment receipt dir: %w", err)
	}
	path := filepath.Join(dir, rec.FileName())

	tmp, err := os.CreateTemp(dir, ".receipt-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp receipt: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := w.renderer.Render(tmp, rec); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp receipt: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("move receipt into place: %w", err)
	}

	w.logger.InfoContext(ctx, "Receipt written",
		"payment_id", p.ID,
		"number", rec.Number,
		"path", path)
	return path, nil
}

func (w *ReceiptWorker) remove(ctx context.Context, paymentID string) error {
	files, err := w.existing(paymentID)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove receipt: %w", err)
		}
		w.logger.InfoContext(ctx, "Receipt removed", "payment_id", paymentID, "path", f)
	}
	if err := os.Remove(w.paymentDir(paymentID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Still holds something other than receipts; leave it.
		w.logger.DebugContext(ctx, "Receipt dir kept", "payment_id", paymentID, "error", err)
	}
	return nil
}

func (w *ReceiptWorker) existing(paymentID string) ([]string, error) {
	entries, err := os.ReadDir(w.paymentDir(paymentID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ".pdf" && e.Name()[0] != '.' {
			files = append(files, filepath.Join(w.paymentDir(paymentID), e.Name()))
		}
	}
	return files, nil
}

var plainID = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// paymentDir names the directory of a payment's receipts. Plain IDs are used
// as is; any other ID is base64url encoded behind a '~', which plain IDs
// never contain, so two payments never share a directory.
func (w *ReceiptWorker) paymentDir(paymentID string) string {
	name := paymentID
	if !plainID.MatchString(paymentID) {
		name = "~" + base64.RawURLEncoding.EncodeToString([]byte(paymentID))
	}
	return filepath.Join(w.dir, name)
}
