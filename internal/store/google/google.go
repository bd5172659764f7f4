// Package google stores students and payments in a Google Sheets workbook.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tutordesk/internal/core"
	"tutordesk/internal/store"
)

// Config locates the workbook and its credentials.
type Config struct {
	SpreadsheetID   string
	StudentsSheet   string
	PaymentsSheet   string
	LevelsSheet     string
	CredentialsJSON string
	CredentialsFile string
	// Levels is used when the levels sheet is missing or empty.
	Levels []string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	studentsSheet string
	paymentsSheet string
	levelsSheet   string
	levels        []string
	newID         func() string
}

var _ store.Gateway = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg.CredentialsJSON, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		studentsSheet: orDefault(cfg.StudentsSheet, "Eleves"),
		paymentsSheet: orDefault(cfg.PaymentsSheet, "Paiements"),
		levelsSheet:   orDefault(cfg.LevelsSheet, "Niveaux"),
		levels:        cfg.Levels,
		newID:         newID,
	}, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// newSheetsService builds the API client from inline JSON, a key file or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, credsJSON, credsFile string) (*gsheet.Service, error) {
	credsJSON = strings.TrimSpace(credsJSON)
	credsFile = strings.TrimSpace(credsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var raw []byte
	switch {
	case credsJSON != "":
		raw = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		raw = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service", "credentials_size", len(raw))
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (c *Client) values(ctx context.Context, sheet, cols string) ([][]interface{}, error) {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, sheet, cols string, row []interface{}) error {
	rng := fmt.Sprintf("%s!%s", sheet, cols)
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

func (c *Client) updateRow(ctx context.Context, sheet, cols, id string, row []interface{}) error {
	values, err := c.values(ctx, sheet, "A:A")
	if err != nil {
		return err
	}
	n := findRow(values, id)
	if n == 0 {
		return fmt.Errorf("%s %s: %w", sheet, id, store.ErrNotFound)
	}
	first, last, _ := strings.Cut(cols, ":")
	rng := fmt.Sprintf("%s!%s%d:%s%d", sheet, first, n, last, n)
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) deleteRow(ctx context.Context, sheet, id string) error {
	values, err := c.values(ctx, sheet, "A:A")
	if err != nil {
		return err
	}
	n := findRow(values, id)
	if n == 0 {
		return fmt.Errorf("%s %s: %w", sheet, id, store.ErrNotFound)
	}
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, sheet, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}

func (c *Client) ListStudents(ctx context.Context) ([]core.Student, error) {
	values, err := c.values(ctx, c.studentsSheet, studentCols)
	if err != nil {
		return nil, err
	}
	out := parseStudents(values)
	store.SortStudents(out)
	return out, nil
}

func (c *Client) CreateStudent(ctx context.Context, s core.Student) (string, error) {
	s.ID = c.newID()
	if err := c.appendRow(ctx, c.studentsSheet, studentCols, studentRow(s)); err != nil {
		return "", err
	}
	return s.ID, nil
}

func (c *Client) UpdateStudent(ctx context.Context, id string, s core.Student) error {
	s.ID = id
	return c.updateRow(ctx, c.studentsSheet, studentCols, id, studentRow(s))
}

func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	return c.deleteRow(ctx, c.studentsSheet, id)
}

func (c *Client) ListPayments(ctx context.Context) ([]core.Payment, error) {
	values, err := c.values(ctx, c.paymentsSheet, paymentCols)
	if err != nil {
		return nil, err
	}
	out := parsePayments(values)
	store.SortPayments(out)
	return out, nil
}

func (c *Client) CreatePayment(ctx context.Context, p core.Payment) (string, error) {
	p.ID = c.newID()
	if err := c.appendRow(ctx, c.paymentsSheet, paymentCols, paymentRow(p)); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (c *Client) UpdatePayment(ctx context.Context, id string, p core.Payment) error {
	p.ID = id
	return c.updateRow(ctx, c.paymentsSheet, paymentCols, id, paymentRow(p))
}

func (c *Client) DeletePayment(ctx context.Context, id string) error {
	return c.deleteRow(ctx, c.paymentsSheet, id)
}

// ListLevels reads the first column of the levels sheet. A missing or empty
// sheet yields the configured levels.
func (c *Client) ListLevels(ctx context.Context) ([]string, error) {
	values, err := c.values(ctx, c.levelsSheet, "A:A")
	if err != nil {
		slog.WarnContext(ctx, "Levels sheet unreadable, using configured levels", "sheet", c.levelsSheet, "error", err)
		return c.fallbackLevels(), nil
	}
	out := readLabels(values)
	if len(out) > 0 && strings.EqualFold(out[0], "niveau") {
		out = out[1:]
	}
	if len(out) == 0 {
		return c.fallbackLevels(), nil
	}
	return out, nil
}

func (c *Client) fallbackLevels() []string {
	if len(c.levels) > 0 {
		return append([]string(nil), c.levels...)
	}
	return append([]string(nil), core.DefaultLevels...)
}
