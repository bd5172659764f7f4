package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tutordesk/internal/core"
	"tutordesk/internal/receipt"
)

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print dashboard totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sum, err := a.ledger.Summary(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Élèves:         %d\n", sum.TotalStudents)
			fmt.Fprintf(a.out, "Paiements:      %d\n", sum.TotalPayments)
			fmt.Fprintf(a.out, "Total encaissé: %s\n\n", a.formatter.Currency(sum.TotalCollected))

			tw := a.table()
			fmt.Fprintln(tw, "CLASSE\tÉLÈVES")
			for _, lc := range sum.ByLevel {
				level := lc.Level
				if level == "" {
					level = "-"
				}
				fmt.Fprintf(tw, "%s\t%d\n", level, lc.Count)
			}
			fmt.Fprintln(tw, "\t")
			fmt.Fprintln(tw, "MOIS\tMONTANT")
			for _, mt := range sum.ByMonth {
				fmt.Fprintf(tw, "%s\t%s\n", mt.Month, a.formatter.Currency(mt.Amount))
			}
			return tw.Flush()
		},
	}
}

func newStudentsCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "students",
		Short: "List students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			tw := a.table()
			fmt.Fprintln(tw, "ID\tNOM\tCLASSE\tINSCRIPTION\tCOURS")
			for _, s := range core.FilterStudents(snap.Students, search) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Level, s.EnrollmentDate, s.CourseType.Label())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive name filter")
	return cmd
}

func newPaymentsCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List payments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			tw := a.table()
			fmt.Fprintln(tw, "ID\tÉLÈVE\tMOIS\tANNÉE\tDATE\tMONTANT")
			for _, p := range core.FilterPayments(snap.Payments, snap.Students, search) {
				name := "?"
				if s, ok := snap.StudentByID(p.StudentID); ok {
					name = s.Name
				}
				month := p.Month
				if month == "" {
					month = core.UnspecifiedMonth
				}
				year := ""
				if p.Year != 0 {
					year = fmt.Sprint(p.Year)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, name, month, year, p.PaymentDate, a.formatter.CurrencyText(p.Amount))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive student name filter")
	return cmd
}

func newTrackingCmd(a *app) *cobra.Command {
	var (
		year   int
		filter string
	)
	cmd := &cobra.Command{
		Use:   "tracking",
		Short: "Print the monthly payment grid for a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year == 0 {
				year = a.formatter.Now().Year()
			}
			snap, err := a.ledger.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			grid := core.BuildTracking(snap.Students, snap.Payments, year, core.ParsePaidFilter(filter))

			fmt.Fprintf(a.out, "Année %d: %d élèves, %d payés, %d non payés\n\n", grid.Year, grid.Total, grid.PaidCount, grid.UnpaidCount)

			tw := a.table()
			header := []string{"ÉLÈVE"}
			for _, m := range grid.Months {
				header = append(header, abbreviate(m))
			}
			fmt.Fprintln(tw, strings.Join(header, "\t"))
			for _, row := range grid.Rows {
				cells := []string{row.Student.Name}
				for _, c := range row.Cells {
					if c.Paid {
						cells = append(cells, "x")
					} else {
						cells = append(cells, ".")
					}
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&year, "year", "y", 0, "year to show (default current year)")
	cmd.Flags().StringVarP(&filter, "filter", "f", string(core.FilterAll), "all, paid or unpaid")
	return cmd
}

// abbreviate keeps the first three letters of a month label.
func abbreviate(month string) string {
	r := []rune(month)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

func newReceiptCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "receipt <payment-id>",
		Short: "Write the PDF receipt of a payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, s, err := a.ledger.PaymentDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec := receipt.Build(p, s, a.formatter)

			path := out
			if path == "" {
				path = rec.FileName()
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, rec.FileName())
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			if err := a.renderer.Render(f, rec); err != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return fmt.Errorf("render receipt: %w", err)
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%s\t%s\t%s\n", rec.Number, rec.Amount, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default Recu-{name}-{month}.pdf)")
	return cmd
}

func newLevelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the configured class levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			levels, err := a.ledger.Levels(cmd.Context())
			if err != nil {
				return err
			}
			for _, l := range levels {
				fmt.Fprintln(a.out, l)
			}
			return nil
		},
	}
}
