package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"tutordesk/internal/core"
	"tutordesk/internal/store"
)

var _ store.Gateway = (*Repository)(nil)

// Repository implements store.Gateway on a Connection. Levels are static
// configuration and are not stored in the database.
type Repository struct {
	conn   *Connection
	levels []string
}

func NewRepository(conn *Connection, levels []string) *Repository {
	return &Repository{conn: conn, levels: levels}
}

// course type values as the existing tables hold them
func courseTypeColumn(c core.CourseType) string {
	if c == core.CoursePrivate {
		return "particulier"
	}
	return "classe"
}

// Ping checks the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

func (r *Repository) ListStudents(ctx context.Context) ([]core.Student, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id, nom, niveau, COALESCE("dateInscription"::text, ''), "typeCours"
		FROM eleves
		ORDER BY nom ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list students: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Student, error) {
		var (
			id                   int64
			s                    core.Student
			enrolled, courseType string
		)
		if err := row.Scan(&id, &s.Name, &s.Level, &enrolled, &courseType); err != nil {
			return core.Student{}, fmt.Errorf("postgres: scan student: %w", err)
		}
		s.ID = strconv.FormatInt(id, 10)
		s.EnrollmentDate, _ = core.ParseDate(enrolled)
		s.CourseType = core.ParseCourseType(courseType)
		return s, nil
	})
}

func (r *Repository) CreateStudent(ctx context.Context, s core.Student) (string, error) {
	var id int64
	err := r.conn.Pool().QueryRow(ctx, `
		INSERT INTO eleves (nom, niveau, "dateInscription", "typeCours")
		VALUES ($1, $2, NULLIF($3::text, '')::date, $4)
		RETURNING id`,
		s.Name, s.Level, s.EnrollmentDate.String(), courseTypeColumn(s.CourseType)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres: create student: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (r *Repository) UpdateStudent(ctx context.Context, id string, s core.Student) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
	}
	tag, err := r.conn.Pool().Exec(ctx, `
		UPDATE eleves
		SET nom = $1, niveau = $2, "dateInscription" = NULLIF($3::text, '')::date, "typeCours" = $4
		WHERE id = $5`,
		s.Name, s.Level, s.EnrollmentDate.String(), courseTypeColumn(s.CourseType), n)
	if err != nil {
		return fmt.Errorf("postgres: update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
	}
	tag, err := r.conn.Pool().Exec(ctx, `DELETE FROM eleves WHERE id = $1`, n)
	if err != nil {
		return fmt.Errorf("postgres: delete student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListPayments(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id, "eleveId"::text, montant::text, mois, annee, COALESCE("dateVersement"::text, '')
		FROM paiements
		ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payments: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Payment, error) {
		var (
			id   int64
			year int32
			p    core.Payment
			paid string
		)
		if err := row.Scan(&id, &p.StudentID, &p.Amount, &p.Month, &year, &paid); err != nil {
			return core.Payment{}, fmt.Errorf("postgres: scan payment: %w", err)
		}
		p.ID = strconv.FormatInt(id, 10)
		p.Year = int(year)
		p.PaymentDate, _ = core.ParseDate(paid)
		return p, nil
	})
}

// yearColumn converts a payment year for the INTEGER annee column. A year
// outside the accepted range is refused rather than truncated.
func yearColumn(y int) (int32, error) {
	if y != 0 && !core.ValidYear(y) {
		return 0, &core.ValidationError{Field: "year", Reason: core.ReasonInvalidYear}
	}
	return int32(y), nil
}

func (r *Repository) CreatePayment(ctx context.Context, p core.Payment) (string, error) {
	year, err := yearColumn(p.Year)
	if err != nil {
		return "", err
	}
	var id int64
	err = r.conn.Pool().QueryRow(ctx, `
		INSERT INTO paiements ("eleveId", montant, mois, annee, "dateVersement")
		VALUES ($1::text::bigint, $2::text::numeric, $3, $4, NULLIF($5::text, '')::date)
		RETURNING id`,
		p.StudentID, p.Amount, p.Month, year, p.PaymentDate.String()).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("postgres: create payment: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (r *Repository) UpdatePayment(ctx context.Context, id string, p core.Payment) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	year, err := yearColumn(p.Year)
	if err != nil {
		return err
	}
	tag, err := r.conn.Pool().Exec(ctx, `
		UPDATE paiements
		SET "eleveId" = $1::text::bigint, montant = $2::text::numeric, mois = $3, annee = $4,
		    "dateVersement" = NULLIF($5::text, '')::date
		WHERE id = $6`,
		p.StudentID, p.Amount, p.Month, year, p.PaymentDate.String(), n)
	if err != nil {
		return fmt.Errorf("postgres: update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) DeletePayment(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	tag, err := r.conn.Pool().Exec(ctx, `DELETE FROM paiements WHERE id = $1`, n)
	if err != nil {
		return fmt.Errorf("postgres: delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// ListLevels returns the configured levels.
func (r *Repository) ListLevels(_ context.Context) ([]string, error) {
	return append([]string(nil), r.levels...), nil
}
