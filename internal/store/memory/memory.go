// Package memory is the local fallback gateway. Records live in process
// memory and identifiers are generated client-side.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tutordesk/internal/core"
	"tutordesk/internal/store"
)

var _ store.Gateway = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	levels   []string
	students []core.Student
	payments []core.Payment
	newID    func() string
}

func New(levels []string) *Store {
	levels = dedupe(levels)
	if len(levels) == 0 {
		levels = append([]string(nil), core.DefaultLevels...)
	}
	return &Store{levels: levels, newID: newUUID}
}

// NewFromFiles seeds levels and students from base/seed_levels.txt and
// base/seed_students.txt. Missing files fall back to the given levels and
// an empty roster.
func NewFromFiles(base string, levels []string) *Store {
	if seeded := readLines(filepath.Join(base, "seed_levels.txt")); len(seeded) > 0 {
		levels = seeded
	}
	s := New(levels)
	for _, line := range readLines(filepath.Join(base, "seed_students.txt")) {
		st, ok := parseStudentLine(line)
		if !ok {
			continue
		}
		st.ID = s.newID()
		s.students = append(s.students, st)
	}
	return s
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// parseStudentLine reads "name | level | enrollment date | course type".
// Only name and level are required.
func parseStudentLine(line string) (core.Student, bool) {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return core.Student{}, false
	}
	st := core.Student{Name: parts[0], Level: parts[1], CourseType: core.CourseGroup}
	if len(parts) > 2 {
		if d, err := core.ParseDate(parts[2]); err == nil {
			st.EnrollmentDate = d
		}
	}
	if len(parts) > 3 {
		st.CourseType = core.ParseCourseType(parts[3])
	}
	return st, true
}

func (s *Store) ListStudents(_ context.Context) ([]core.Student, error) {
	s.mu.Lock()
	out := append([]core.Student(nil), s.students...)
	s.mu.Unlock()
	store.SortStudents(out)
	return out, nil
}

func (s *Store) CreateStudent(_ context.Context, st core.Student) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.newID()
	s.students = append(s.students, st)
	return st.ID, nil
}

func (s *Store) UpdateStudent(_ context.Context, id string, st core.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.students {
		if s.students[i].ID == id {
			st.ID = id
			s.students[i] = st
			return nil
		}
	}
	return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
}

func (s *Store) DeleteStudent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.students {
		if s.students[i].ID == id {
			s.students = append(s.students[:i], s.students[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("student %s: %w", id, store.ErrNotFound)
}

func (s *Store) ListPayments(_ context.Context) ([]core.Payment, error) {
	s.mu.Lock()
	out := append([]core.Payment(nil), s.payments...)
	s.mu.Unlock()
	store.SortPayments(out)
	return out, nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.newID()
	s.payments = append(s.payments, p)
	return p.ID, nil
}

func (s *Store) UpdatePayment(_ context.Context, id string, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == id {
			p.ID = id
			s.payments[i] = p
			return nil
		}
	}
	return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
}

func (s *Store) DeletePayment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("payment %s: %w", id, store.ErrNotFound)
}

// ListLevels returns the configured levels.
func (s *Store) ListLevels(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.levels...), nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
