package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LevelCount is the number of students at one level.
type LevelCount struct {
	Level string
	Count int
}

// MonthTotal is the amount collected for one month label.
type MonthTotal struct {
	Month  string
	Amount decimal.Decimal
}

// Partition splits students by whether they paid for a set of months.
type Partition struct {
	Paid   []Student
	Unpaid []Student
}

func TotalStudents(students []Student) int { return len(students) }

func TotalPayments(payments []Payment) int { return len(payments) }

// TotalCollected sums every payment amount. Unparseable amounts count as zero.
func TotalCollected(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Value())
	}
	return total
}

// CountByLevel counts students per level in first-seen order. A blank level
// is its own group.
func CountByLevel(students []Student) []LevelCount {
	index := map[string]int{}
	out := make([]LevelCount, 0)
	for _, s := range students {
		i, ok := index[s.Level]
		if !ok {
			index[s.Level] = len(out)
			out = append(out, LevelCount{Level: s.Level})
			i = len(out) - 1
		}
		out[i].Count++
	}
	return out
}

// SumByMonth sums amounts per month label in first-seen order. Payments
// without a month are grouped under UnspecifiedMonth.
func SumByMonth(payments []Payment) []MonthTotal {
	index := map[string]int{}
	out := make([]MonthTotal, 0)
	for _, p := range payments {
		month := p.Month
		if strings.TrimSpace(month) == "" {
			month = UnspecifiedMonth
		}
		i, ok := index[month]
		if !ok {
			index[month] = len(out)
			out = append(out, MonthTotal{Month: month, Amount: decimal.Zero})
			i = len(out) - 1
		}
		out[i].Amount = out[i].Amount.Add(p.Value())
	}
	return out
}

// HasPaymentForMonth reports whether the student has at least one payment
// whose month label equals month exactly.
func HasPaymentForMonth(payments []Payment, studentID, month string) bool {
	for _, p := range payments {
		if p.StudentID == studentID && p.Month == month {
			return true
		}
	}
	return false
}

// PaymentForMonth returns the student's payment for month. When several
// match, the one with the greatest ID (the most recently created) wins,
// whatever the input order.
func PaymentForMonth(payments []Payment, studentID, month string) (Payment, bool) {
	var (
		best  Payment
		found bool
	)
	for _, p := range payments {
		if p.StudentID != studentID || p.Month != month {
			continue
		}
		if !found || CompareIDs(p.ID, best.ID) > 0 {
			best, found = p, true
		}
	}
	return best, found
}

// PartitionByPaidStatus marks a student paid when any of months has a
// payment. Only labels are compared; filter payments by year beforehand.
func PartitionByPaidStatus(students []Student, payments []Payment, months []string) Partition {
	part := Partition{Paid: []Student{}, Unpaid: []Student{}}
	for _, s := range students {
		paid := false
		for _, m := range months {
			if HasPaymentForMonth(payments, s.ID, m) {
				paid = true
				break
			}
		}
		if paid {
			part.Paid = append(part.Paid, s)
		} else {
			part.Unpaid = append(part.Unpaid, s)
		}
	}
	return part
}

// CompareIDs orders identifiers numerically when both are integers and
// lexically otherwise.
func CompareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// LevelCountsMap returns the counts keyed by level.
func LevelCountsMap(counts []LevelCount) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Level] = c.Count
	}
	return m
}

// MonthTotalsMap returns the totals keyed by month label.
func MonthTotalsMap(totals []MonthTotal) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(totals))
	for _, t := range totals {
		m[t.Month] = t.Amount
	}
	return m
}
