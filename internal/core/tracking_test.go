package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackingFixture() ([]Student, []Payment) {
	students := []Student{
		{ID: "1", Name: "Ahmed"},
		{ID: "2", Name: "Fatima"},
		{ID: "3", Name: "محمد بوحمادي"},
	}
	payments := []Payment{
		{ID: "30", StudentID: "1", Amount: "500", Month: "Mars", Year: 2024},
		{ID: "31", StudentID: "1", Amount: "600", Month: "Mars", Year: 2024},
		{ID: "20", StudentID: "2", Amount: "400", Month: "Mars", Year: 2023},
		{ID: "10", StudentID: "3", Amount: "300", Month: "Avril"},
	}
	return students, payments
}

func TestPaymentsForYear(t *testing.T) {
	_, payments := trackingFixture()
	got := PaymentsForYear(payments, 2024)

	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"30", "31", "10"}, ids)
}

func TestBuildTracking(t *testing.T) {
	students, payments := trackingFixture()

	grid := BuildTracking(students, payments, 2024, FilterAll)
	assert.Equal(t, 3, grid.Total)
	assert.Equal(t, 2, grid.PaidCount)
	assert.Equal(t, 1, grid.UnpaidCount)
	require.Len(t, grid.Rows, 3)
	require.Len(t, grid.Months, 12)

	ahmed := grid.Rows[0]
	assert.True(t, ahmed.Paid)
	march := ahmed.Cells[2]
	assert.Equal(t, "Mars", march.Month)
	assert.True(t, march.Paid)
	assert.Equal(t, "31", march.Payment.ID)
	assert.False(t, ahmed.Cells[0].Paid)

	assert.False(t, grid.Rows[1].Paid, "2023 payment must not count for 2024")
	assert.True(t, grid.Rows[2].Cells[3].Paid, "payments without a year count for every year")
}

func TestBuildTrackingFilters(t *testing.T) {
	students, payments := trackingFixture()

	paid := BuildTracking(students, payments, 2024, FilterPaid)
	require.Len(t, paid.Rows, 2)
	assert.Equal(t, "1", paid.Rows[0].Student.ID)
	assert.Equal(t, "3", paid.Rows[1].Student.ID)
	assert.Equal(t, 3, paid.Total)

	unpaid := BuildTracking(students, payments, 2024, FilterUnpaid)
	require.Len(t, unpaid.Rows, 1)
	assert.Equal(t, "2", unpaid.Rows[0].Student.ID)

	y2023 := BuildTracking(students, payments, 2023, FilterPaid)
	assert.Equal(t, 2, y2023.PaidCount)
}

func TestParsePaidFilter(t *testing.T) {
	assert.Equal(t, FilterPaid, ParsePaidFilter("payes"))
	assert.Equal(t, FilterPaid, ParsePaidFilter("paid"))
	assert.Equal(t, FilterUnpaid, ParsePaidFilter("nonPayes"))
	assert.Equal(t, FilterUnpaid, ParsePaidFilter("unpaid"))
	assert.Equal(t, FilterAll, ParsePaidFilter("tous"))
	assert.Equal(t, FilterAll, ParsePaidFilter(""))
}

func TestYearOptions(t *testing.T) {
	assert.Equal(t, []int{2022, 2023, 2024, 2025, 2026}, YearOptions(2024, 2))
}

func TestFilterStudentsAndPayments(t *testing.T) {
	students, payments := trackingFixture()

	got := FilterStudents(students, "FAT")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Len(t, FilterStudents(students, "  "), 3)
	assert.Len(t, FilterStudents(students, "محمد"), 1)

	ps := FilterPayments(payments, students, "ahm")
	require.Len(t, ps, 2)
	assert.Equal(t, "30", ps[0].ID)

	orphan := append(payments, Payment{ID: "99", StudentID: "gone"})
	assert.Len(t, FilterPayments(orphan, students, ""), 5)
	assert.Len(t, FilterPayments(orphan, students, "gone"), 0)
}

func TestRecentPayments(t *testing.T) {
	_, payments := trackingFixture()
	got := RecentPayments(payments, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "31", got[0].ID)
	assert.Equal(t, "30", got[1].ID)
	assert.Equal(t, "30", payments[0].ID, "input order must be left untouched")
}
