// Package sqlite is the embedded local gateway backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"tutordesk/internal/core"
	"tutordesk/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Gateway = (*Repository)(nil)

type Repository struct {
	db     *sql.DB
	levels []string
}

// NewRepository opens dbPath, applies migrations and returns the gateway.
// fallbackLevels are served when the levels table is empty.
func NewRepository(dbPath string, fallbackLevels []string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, levels: fallbackLevels}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, level, enrollment_date, course_type
		FROM students
		ORDER BY name COLLATE NOCASE ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []core.Student
	for rows.Next() {
		var (
			id                   int64
			s                    core.Student
			enrolled, courseType string
		)
		if err := rows.Scan(&id, &s.Name, &s.Level, &enrolled, &courseType); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		s.ID = strconv.FormatInt(id, 10)
		s.EnrollmentDate, _ = core.ParseDate(enrolled)
		s.CourseType = core.ParseCourseType(courseType)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) CreateStudent(ctx context.Context, s core.Student) (string, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO students (name, level, enrollment_date, course_type)
		VALUES (?, ?, ?, ?)`,
		s.Name, s.Level, s.EnrollmentDate.String(), string(s.CourseType))
	if err != nil {
		return "", fmt.Errorf("create student: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("create student: %w", err)
	}

	slog.InfoContext(ctx, "Student saved to SQLite", "id", id, "level", s.Level)
	return strconv.FormatInt(id, 10), nil
}

func (r *Repository) UpdateStudent(ctx context.Context, id string, s core.Student) error {
	n, err := parseID(id)
	if err != nil {
		return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET name = ?, level = ?, enrollment_date = ?, course_type = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		s.Name, s.Level, s.EnrollmentDate.String(), string(s.CourseType), n)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectOne(res, "student", id)
}

func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectOne(res, "student", id)
}

func (r *Repository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, amount, month, year, payment_date
		FROM payments
		ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			id   int64
			p    core.Payment
			paid string
		)
		if err := rows.Scan(&id, &p.StudentID, &p.Amount, &p.Month, &p.Year, &paid); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.ID = strconv.FormatInt(id, 10)
		p.PaymentDate, _ = core.ParseDate(paid)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) CreatePayment(ctx context.Context, p core.Payment) (string, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (student_id, amount, month, year, payment_date)
		VALUES (?, ?, ?, ?, ?)`,
		p.StudentID, p.Amount, p.Month, p.Year, p.PaymentDate.String())
	if err != nil {
		return "", fmt.Errorf("create payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("create payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment saved to SQLite",
		"id", id,
		"student_id", p.StudentID,
		"month", p.Month,
		"year", p.Year)
	return strconv.FormatInt(id, 10), nil
}

func (r *Repository) UpdatePayment(ctx context.Context, id string, p core.Payment) error {
	n, err := parseID(id)
	if err != nil {
		return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET student_id = ?, amount = ?, month = ?, year = ?, payment_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.StudentID, p.Amount, p.Month, p.Year, p.PaymentDate.String(), n)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return expectOne(res, "payment", id)
}

func (r *Repository) DeletePayment(ctx context.Context, id string) error {
	n, err := parseID(id)
	if err != nil {
		return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, n)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return expectOne(res, "payment", id)
}

// ListLevels reads the levels table, falling back to the configured list.
func (r *Repository) ListLevels(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT label FROM levels ORDER BY position, label`)
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan level: %w", err)
		}
		out = append(out, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return append([]string(nil), r.levels...), nil
	}
	return out, nil
}

func parseID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err comes from a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
