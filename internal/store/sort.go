package store

import (
	"sort"
	"strings"

	"tutordesk/internal/core"
)

// SortStudents orders students by name ascending, ignoring case.
func SortStudents(students []core.Student) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := strings.ToLower(students[i].Name), strings.ToLower(students[j].Name)
		if a != b {
			return a < b
		}
		return students[i].Name < students[j].Name
	})
}

// SortPayments orders payments by id descending.
func SortPayments(payments []core.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return core.CompareIDs(payments[i].ID, payments[j].ID) > 0
	})
}
