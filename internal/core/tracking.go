package core

import (
	"sort"
	"strings"
)

const (
	FilterAll    PaidFilter = "all"
	FilterPaid   PaidFilter = "paid"
	FilterUnpaid PaidFilter = "unpaid"
)

type (
	// PaidFilter selects which rows of the tracking grid are shown.
	PaidFilter string

	TrackingCell struct {
		Month   string
		Paid    bool
		Payment Payment
	}

	TrackingRow struct {
		Student Student
		Paid    bool
		Cells   []TrackingCell
	}

	// Tracking is the students by months payment grid for one year. The
	// counters cover every student; Rows honours Filter.
	Tracking struct {
		Year        int
		Filter      PaidFilter
		Months      []string
		Rows        []TrackingRow
		Total       int
		PaidCount   int
		UnpaidCount int
	}
)

// ParsePaidFilter accepts the canonical names and the legacy French ones.
// Anything else means all.
func ParsePaidFilter(s string) PaidFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paid", "payes":
		return FilterPaid
	case "unpaid", "nonpayes":
		return FilterUnpaid
	default:
		return FilterAll
	}
}

// PaymentsForYear keeps the payments recorded for year. Payments with an
// unknown year (0) are kept for every year.
func PaymentsForYear(payments []Payment, year int) []Payment {
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		if p.Year == 0 || p.Year == year {
			out = append(out, p)
		}
	}
	return out
}

// BuildTracking computes the yearly grid over the twelve month labels.
func BuildTracking(students []Student, payments []Payment, year int, filter PaidFilter) Tracking {
	yearly := PaymentsForYear(payments, year)
	labels := Months()
	part := PartitionByPaidStatus(students, yearly, labels)

	t := Tracking{
		Year:        year,
		Filter:      filter,
		Months:      labels,
		Rows:        []TrackingRow{},
		Total:       len(students),
		PaidCount:   len(part.Paid),
		UnpaidCount: len(part.Unpaid),
	}
	for _, s := range students {
		row := TrackingRow{Student: s, Cells: make([]TrackingCell, 0, len(labels))}
		for _, m := range labels {
			p, ok := PaymentForMonth(yearly, s.ID, m)
			row.Cells = append(row.Cells, TrackingCell{Month: m, Paid: ok, Payment: p})
			row.Paid = row.Paid || ok
		}
		if (filter == FilterPaid && !row.Paid) || (filter == FilterUnpaid && row.Paid) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// YearOptions lists the selectable years around current.
func YearOptions(current, span int) []int {
	out := make([]int, 0, 2*span+1)
	for y := current - span; y <= current+span; y++ {
		out = append(out, y)
	}
	return out
}

// FilterStudents keeps students whose name contains query, ignoring case.
func FilterStudents(students []Student, query string) []Student {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Student, 0, len(students))
	for _, s := range students {
		if q == "" || strings.Contains(strings.ToLower(s.Name), q) {
			out = append(out, s)
		}
	}
	return out
}

// FilterPayments keeps payments whose student name contains query,
// ignoring case. Orphaned payments only match an empty query.
func FilterPayments(payments []Payment, students []Student, query string) []Payment {
	q := strings.ToLower(strings.TrimSpace(query))
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.ID] = strings.ToLower(s.Name)
	}
	out := make([]Payment, 0, len(payments))
	for _, p := range payments {
		name, ok := names[p.StudentID]
		if q == "" || (ok && strings.Contains(name, q)) {
			out = append(out, p)
		}
	}
	return out
}

// RecentPayments returns up to n payments, most recently created first.
func RecentPayments(payments []Payment, n int) []Payment {
	sorted := make([]Payment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareIDs(sorted[i].ID, sorted[j].ID) > 0
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
