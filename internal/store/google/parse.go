package google

import (
	"fmt"
	"strconv"
	"strings"

	"tutordesk/internal/core"
)

// Column layouts, row 1 being a header:
//
//	Eleves:    id | nom | niveau | dateInscription | typeCours
//	Paiements: id | eleveId | montant | mois | dateVersement | annee
const (
	studentCols = "A:E"
	paymentCols = "A:F"
)

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// isHeader reports whether a row is the column header.
func isHeader(cols []string) bool {
	return strings.EqualFold(safeGet(cols, 0), "id")
}

// parseStudents converts sheet rows to students. Header and id-less rows are
// skipped.
func parseStudents(values [][]interface{}) []core.Student {
	var out []core.Student
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" || isHeader(cols) {
			continue
		}
		s := core.Student{
			ID:         cols[0],
			Name:       safeGet(cols, 1),
			Level:      safeGet(cols, 2),
			CourseType: core.ParseCourseType(safeGet(cols, 4)),
		}
		s.EnrollmentDate, _ = core.ParseDate(safeGet(cols, 3))
		out = append(out, s)
	}
	return out
}

// parsePayments converts sheet rows to payments. Amounts are kept verbatim.
func parsePayments(values [][]interface{}) []core.Payment {
	var out []core.Payment
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" || isHeader(cols) {
			continue
		}
		p := core.Payment{
			ID:        cols[0],
			StudentID: safeGet(cols, 1),
			Amount:    safeGet(cols, 2),
			Month:     safeGet(cols, 3),
		}
		p.PaymentDate, _ = core.ParseDate(safeGet(cols, 4))
		if y, err := strconv.Atoi(safeGet(cols, 5)); err == nil {
			p.Year = y
		}
		out = append(out, p)
	}
	return out
}

// findRow returns the 1-based sheet row holding id in column A, or 0.
func findRow(values [][]interface{}, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

func studentRow(s core.Student) []interface{} {
	course := "classe"
	if s.CourseType == core.CoursePrivate {
		course = "particulier"
	}
	return []interface{}{s.ID, s.Name, s.Level, s.EnrollmentDate.String(), course}
}

func paymentRow(p core.Payment) []interface{} {
	year := ""
	if p.Year != 0 {
		year = strconv.Itoa(p.Year)
	}
	return []interface{}{p.ID, p.StudentID, p.Amount, p.Month, p.PaymentDate.String(), year}
}

// readLabels keeps non-blank, non-comment values of the first column,
// deduplicated in order.
func readLabels(values [][]interface{}) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
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
