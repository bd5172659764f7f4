package http

import (
	"net/http"

	"tutordesk/internal/core"
	applog "tutordesk/internal/log"
)

type dashboardView struct {
	page
	Summary core.DashboardSummary
	Recent  []paymentRow
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, applog.ComponentLedger, applog.OpRead, err)
		return
	}

	summary := core.Summarize(snap.Students, snap.Payments)
	s.render(w, r, http.StatusOK, "dashboard.html", dashboardView{
		page:    page{Title: "Tableau de bord", Active: "dashboard"},
		Summary: summary,
		Recent:  paymentRows(snap, summary.Recent),
	})
}

type filterOption struct {
	Value core.PaidFilter
	Label string
}

var filterOptions = []filterOption{
	{core.FilterAll, "Tous"},
	{core.FilterPaid, "Payés"},
	{core.FilterUnpaid, "Non payés"},
}

type trackingView struct {
	page
	Grid    core.Tracking
	Years   []int
	Filters []filterOption
}

// handleTracking renders the yearly students by months grid.
func (s *Server) handleTracking(w http.ResponseWriter, r *http.Request) {
	current := s.formatter.Now().Year()
	year := parseYear(r, current)
	filter := core.ParsePaidFilter(r.URL.Query().Get("filter"))

	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, applog.ComponentTracking, applog.OpRead, err)
		return
	}

	s.render(w, r, http.StatusOK, "tracking.html", trackingView{
		page:    page{Title: "Suivi mensuel", Active: "tracking"},
		Grid:    core.BuildTracking(snap.Students, snap.Payments, year, filter),
		Years:   core.YearOptions(current, 2),
		Filters: filterOptions,
	})
}
