package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tutordesk/internal/cache"
	"tutordesk/internal/core"
	"tutordesk/internal/store"
)

const levelsKey = "levels"

// Ledger sequences guard, mutate, refetch for every caller. Mutations
// return a freshly fetched snapshot; nothing is updated incrementally. When
// only the refetch fails the error matches core.ErrStaleSnapshot and the
// write stands.
type Ledger struct {
	gw     store.Gateway
	now    func() time.Time
	logger *slog.Logger
	levels cache.Cache[[]string]
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for default dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithLevelCache keeps level lists between snapshots.
func WithLevelCache(c cache.Cache[[]string]) Option {
	return func(l *Ledger) { l.levels = c }
}

func NewLedger(gw store.Gateway, opts ...Option) *Ledger {
	l := &Ledger{
		gw:     gw,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot fetches students, payments and levels concurrently.
func (l *Ledger) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := l.gw.ListStudents(gctx)
		if err != nil {
			return storageErr("list_students", err)
		}
		snap.Students = students
		return nil
	})
	g.Go(func() error {
		payments, err := l.gw.ListPayments(gctx)
		if err != nil {
			return storageErr("list_payments", err)
		}
		snap.Payments = payments
		return nil
	})
	g.Go(func() error {
		levels, err := l.Levels(gctx)
		if err != nil {
			return err
		}
		snap.Levels = levels
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

// Levels returns the level labels, from cache when one is configured.
func (l *Ledger) Levels(ctx context.Context) ([]string, error) {
	if l.levels != nil {
		if v, ok := l.levels.Get(levelsKey); ok {
			return append([]string(nil), v...), nil
		}
	}
	levels, err := l.gw.ListLevels(ctx)
	if err != nil {
		return nil, storageErr("list_levels", err)
	}
	if l.levels != nil {
		l.levels.Set(levelsKey, append([]string(nil), levels...))
	}
	return levels, nil
}

// Summary is the dashboard view of a fresh snapshot.
func (l *Ledger) Summary(ctx context.Context) (core.DashboardSummary, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	return core.Summarize(snap.Students, snap.Payments), nil
}

func (l *Ledger) AddStudent(ctx context.Context, s core.Student) (string, core.Snapshot, error) {
	s, err := core.PrepareStudent(s, l.now())
	if err != nil {
		return "", core.Snapshot{}, err
	}
	id, err := l.gw.CreateStudent(ctx, s)
	if err != nil {
		return "", core.Snapshot{}, storageErr("create_student", err)
	}
	l.logger.InfoContext(ctx, "Student created", "student_id", id, "level", s.Level)
	snap, err := l.refresh(ctx, "create_student", id)
	return id, snap, err
}

func (l *Ledger) UpdateStudent(ctx context.Context, id string, s core.Student) (core.Snapshot, error) {
	s, err := core.PrepareStudent(s, l.now())
	if err != nil {
		return core.Snapshot{}, err
	}
	s.ID = id
	if err := l.gw.UpdateStudent(ctx, id, s); err != nil {
		return core.Snapshot{}, storageErr("update_student", err)
	}
	l.logger.InfoContext(ctx, "Student updated", "student_id", id)
	return l.refresh(ctx, "update_student", id)
}

// DeleteStudent refuses to remove a student who still has payments.
func (l *Ledger) DeleteStudent(ctx context.Context, id string) (core.Snapshot, error) {
	payments, err := l.gw.ListPayments(ctx)
	if err != nil {
		return core.Snapshot{}, storageErr("list_payments", err)
	}
	if err := core.CheckStudentDeletion(payments, id); err != nil {
		l.logger.InfoContext(ctx, "Student deletion blocked", "student_id", id, "error", err)
		return core.Snapshot{}, err
	}
	if err := l.gw.DeleteStudent(ctx, id); err != nil {
		return core.Snapshot{}, storageErr("delete_student", err)
	}
	l.logger.InfoContext(ctx, "Student deleted", "student_id", id)
	return l.refresh(ctx, "delete_student", id)
}

// AddPayment records a payment for a known student.
func (l *Ledger) AddPayment(ctx context.Context, p core.Payment) (string, core.Snapshot, error) {
	students, err := l.gw.ListStudents(ctx)
	if err != nil {
		return "", core.Snapshot{}, storageErr("list_students", err)
	}
	p, err = core.PreparePayment(p, students, l.now())
	if err != nil {
		return "", core.Snapshot{}, err
	}
	id, err := l.gw.CreatePayment(ctx, p)
	if err != nil {
		return "", core.Snapshot{}, storageErr("create_payment", err)
	}
	l.logger.InfoContext(ctx, "Payment recorded",
		"payment_id", id,
		"student_id", p.StudentID,
		"month", p.Month,
		"amount", p.Amount)
	snap, err := l.refresh(ctx, "create_payment", id)
	return id, snap, err
}

func (l *Ledger) UpdatePayment(ctx context.Context, id string, p core.Payment) (core.Snapshot, error) {
	students, err := l.gw.ListStudents(ctx)
	if err != nil {
		return core.Snapshot{}, storageErr("list_students", err)
	}
	p, err = core.PreparePayment(p, students, l.now())
	if err != nil {
		return core.Snapshot{}, err
	}
	p.ID = id
	if err := l.gw.UpdatePayment(ctx, id, p); err != nil {
		return core.Snapshot{}, storageErr("update_payment", err)
	}
	l.logger.InfoContext(ctx, "Payment updated", "payment_id", id)
	return l.refresh(ctx, "update_payment", id)
}

func (l *Ledger) DeletePayment(ctx context.Context, id string) (core.Snapshot, error) {
	if err := l.gw.DeletePayment(ctx, id); err != nil {
		return core.Snapshot{}, storageErr("delete_payment", err)
	}
	l.logger.InfoContext(ctx, "Payment deleted", "payment_id", id)
	return l.refresh(ctx, "delete_payment", id)
}

// refresh fetches the snapshot that follows a stored write. A failure here
// leaves the write in place, so it is reported as a RefreshError rather
// than a StorageError from the write itself.
func (l *Ledger) refresh(ctx context.Context, op, id string) (core.Snapshot, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "Write saved but snapshot refresh failed", "op", op, "id", id, "error", err)
		return core.Snapshot{}, &core.RefreshError{Op: op, ID: id, Err: err}
	}
	return snap, nil
}

// PaymentDetail finds a payment and its student in a fresh snapshot. A
// payment whose student is gone is returned with a zero Student.
func (l *Ledger) PaymentDetail(ctx context.Context, paymentID string) (core.Payment, core.Student, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return core.Payment{}, core.Student{}, err
	}
	p, ok := snap.PaymentByID(paymentID)
	if !ok {
		return core.Payment{}, core.Student{}, storageErr("get_payment", store.ErrNotFound)
	}
	s, _ := snap.StudentByID(p.StudentID)
	return p, s, nil
}

// Ping checks the backend is reachable. Gateways without a Ping method are
// probed with a student listing.
func (l *Ledger) Ping(ctx context.Context) error {
	var err error
	if p, ok := l.gw.(store.Pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = l.gw.ListStudents(ctx)
	}
	if err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	var se *core.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &core.StorageError{Op: op, Err: err}
}
