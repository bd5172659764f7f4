package core

import "github.com/shopspring/decimal"

// RecentLimit is the number of payments listed on the dashboard.
const RecentLimit = 5

// DashboardSummary is the set of figures shown on the dashboard.
type DashboardSummary struct {
	TotalStudents  int
	TotalPayments  int
	TotalCollected decimal.Decimal
	ByLevel        []LevelCount
	ByMonth        []MonthTotal
	Recent         []Payment
}

// Summarize derives the dashboard from the current collections.
func Summarize(students []Student, payments []Payment) DashboardSummary {
	return DashboardSummary{
		TotalStudents:  TotalStudents(students),
		TotalPayments:  TotalPayments(payments),
		TotalCollected: TotalCollected(payments),
		ByLevel:        CountByLevel(students),
		ByMonth:        SumByMonth(payments),
		Recent:         RecentPayments(payments, RecentLimit),
	}
}
