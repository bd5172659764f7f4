package store

import (
	"context"
	"errors"

	"tutordesk/internal/core"
)

// ErrNotFound is returned by updates and deletes targeting a missing record.
var ErrNotFound = errors.New("record not found")

// Ports for outbound adapters.
type (
	// StudentStore persists students. ListStudents orders by name ascending.
	StudentStore interface {
		ListStudents(ctx context.Context) ([]core.Student, error)
		CreateStudent(ctx context.Context, s core.Student) (id string, err error)
		UpdateStudent(ctx context.Context, id string, s core.Student) error
		DeleteStudent(ctx context.Context, id string) error
	}

	// PaymentStore persists payments. ListPayments orders by id descending,
	// most recently created first.
	PaymentStore interface {
		ListPayments(ctx context.Context) ([]core.Payment, error)
		CreatePayment(ctx context.Context, p core.Payment) (id string, err error)
		UpdatePayment(ctx context.Context, id string, p core.Payment) error
		DeletePayment(ctx context.Context, id string) error
	}

	// LevelReader returns the configured level labels.
	LevelReader interface {
		ListLevels(ctx context.Context) ([]string, error)
	}

	// Pinger is implemented by gateways with a cheap liveness check.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Gateway is everything the ledger needs from a backend.
	Gateway interface {
		StudentStore
		PaymentStore
		LevelReader
	}
)
