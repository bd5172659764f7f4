package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutordesk/internal/core"
	"tutordesk/internal/format"
	"tutordesk/internal/services"
	"tutordesk/internal/store"
	"tutordesk/internal/store/memory"
)

var fixedNow = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) (*Server, *services.Ledger) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	ledger := services.NewLedger(memory.New(nil), services.WithClock(clock))
	srv, err := NewServer(":0", ledger, format.MustNew("fr", "MRU", format.WithClock(clock)), opts...)
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.stop)
	return srv, ledger
}

func do(srv *Server, method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func seed(t *testing.T, ledger *services.Ledger, name string) string {
	t.Helper()
	id, _, err := ledger.AddStudent(context.Background(), core.Student{Name: name, Level: "BAC D"})
	require.NoError(t, err)
	return id
}

func TestDashboardAndProbes(t *testing.T) {
	srv, ledger := newTestServer(t)
	sid := seed(t, ledger, "Ahmed")
	_, _, err := ledger.AddPayment(context.Background(), core.Payment{StudentID: sid, Amount: "500", Month: "Mars"})
	require.NoError(t, err)

	rr := do(srv, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Tableau de bord")
	assert.Contains(t, body, "Ahmed")
	assert.Contains(t, body, "BAC D")

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
	assert.Contains(t, do(srv, http.MethodGet, "/readyz", nil, false).Body.String(), `"ready"`)

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/nope", nil, false).Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(srv, http.MethodGet, "/students", nil, false)

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
}

func TestStudentFormPosts(t *testing.T) {
	srv, ledger := newTestServer(t)

	rr := do(srv, http.MethodPost, "/students", url.Values{"name": {"  Fatima  "}, "level": {"Seconde"}}, false)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/students", rr.Header().Get("Location"))

	snap, err := ledger.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Students, 1)
	st := snap.Students[0]
	assert.Equal(t, "Fatima", st.Name)
	assert.Equal(t, core.CourseGroup, st.CourseType)
	assert.Equal(t, "2024-03-05", st.EnrollmentDate.String())

	rr = do(srv, http.MethodPost, "/students/"+st.ID, url.Values{"name": {"Fatima Mint"}, "level": {"Seconde"}, "course_type": {"private"}}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "student:saved")
	assert.Contains(t, rr.Body.String(), "Fatima Mint")
	assert.Contains(t, rr.Body.String(), "Particulier")

	rr = do(srv, http.MethodGet, "/students?q=mint", nil, false)
	assert.Contains(t, rr.Body.String(), "Fatima Mint")
	rr = do(srv, http.MethodGet, "/students?q=zzz", nil, false)
	assert.NotContains(t, rr.Body.String(), "Fatima Mint")
	assert.Contains(t, rr.Body.String(), "Aucun élève trouvé")

	rr = do(srv, http.MethodPost, "/students/"+st.ID+"/delete", url.Values{}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	snap, _ = ledger.Snapshot(context.Background())
	assert.Empty(t, snap.Students)
}

func TestStudentValidationErrors(t *testing.T) {
	srv, ledger := newTestServer(t)

	rr := do(srv, http.MethodPost, "/students", url.Values{"name": {"   "}, "level": {"BAC D"}}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Veuillez renseigner le nom")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "show-notification")

	rr = do(srv, http.MethodPost, "/students", url.Values{"name": {"Ali"}, "level": {"BAC D"}, "enrollment_date": {"05/03/2024"}}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "La date est invalide")

	snap, err := ledger.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Students)

	rr = do(srv, http.MethodPost, "/students/missing", url.Values{"name": {"Ali"}, "level": {"BAC D"}}, true)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteStudentWithPaymentsIsConflict(t *testing.T) {
	srv, ledger := newTestServer(t)
	sid := seed(t, ledger, "Ahmed")
	_, _, err := ledger.AddPayment(context.Background(), core.Payment{StudentID: sid, Amount: "500", Month: "Mars"})
	require.NoError(t, err)

	rr := do(srv, http.MethodPost, "/students/"+sid+"/delete", url.Values{}, true)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "1 paiement(s)")

	snap, _ := ledger.Snapshot(context.Background())
	assert.Len(t, snap.Students, 1)
}

func TestPaymentPosts(t *testing.T) {
	srv, ledger := newTestServer(t)
	sid := seed(t, ledger, "Ahmed")

	form := url.Values{"student_id": {sid}, "amount": {"1 500,50"}, "month": {"Mars"}}
	rr := do(srv, http.MethodPost, "/payments", form, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "payment:saved")
	assert.Contains(t, rr.Body.String(), "Ahmed")

	snap, err := ledger.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Payments, 1)
	p := snap.Payments[0]
	assert.Equal(t, "1500.5", p.Amount)
	assert.Equal(t, 2024, p.Year)

	rr = do(srv, http.MethodPost, "/payments/"+p.ID, url.Values{"student_id": {sid}, "amount": {"700"}, "month": {"Avril"}, "year": {"2023"}}, false)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	snap, _ = ledger.Snapshot(context.Background())
	assert.Equal(t, "Avril", snap.Payments[0].Month)
	assert.Equal(t, 2023, snap.Payments[0].Year)

	rr = do(srv, http.MethodGet, "/payments?q=ahm", nil, false)
	assert.Contains(t, rr.Body.String(), "Avril")

	rr = do(srv, http.MethodPost, "/payments/"+p.ID+"/delete", url.Values{}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), "payment:deleted")
	assert.Contains(t, rr.Body.String(), "Aucun paiement trouvé")
}

func TestPaymentGuards(t *testing.T) {
	srv, ledger := newTestServer(t)
	sid := seed(t, ledger, "Ahmed")

	cases := []struct {
		name string
		form url.Values
		want string
	}{
		{"unknown student", url.Values{"student_id": {"ghost"}, "amount": {"10"}, "month": {"Mars"}}, "n&#39;existe pas"},
		{"bad amount", url.Values{"student_id": {sid}, "amount": {"abc"}, "month": {"Mars"}}, "montant est invalide"},
		{"negative amount", url.Values{"student_id": {sid}, "amount": {"-5"}, "month": {"Mars"}}, "négatif"},
		{"unknown month", url.Values{"student_id": {sid}, "amount": {"10"}, "month": {"mars"}}, "mois est inconnu"},
		{"bad year", url.Values{"student_id": {sid}, "amount": {"10"}, "month": {"Mars"}, "year": {"deux"}}, "Veuillez renseigner"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(srv, http.MethodPost, "/payments", tc.form, true)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.want)
		})
	}

	snap, _ := ledger.Snapshot(context.Background())
	assert.Empty(t, snap.Payments)
}

func TestTrackingPage(t *testing.T) {
	srv, ledger := newTestServer(t)
	paid := seed(t, ledger, "Ahmed")
	seed(t, ledger, "Fatima")
	_, _, err := ledger.AddPayment(context.Background(), core.Payment{StudentID: paid, Amount: "500", Month: "Mars", Year: 2024})
	require.NoError(t, err)

	rr := do(srv, http.MethodGet, "/tracking?year=2024&filter=unpaid", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Fatima")
	assert.NotContains(t, rr.Body.String(), "Ahmed")

	rr = do(srv, http.MethodGet, "/tracking?year=2024&filter=payes", nil, false)
	assert.Contains(t, rr.Body.String(), "Ahmed")
	assert.NotContains(t, rr.Body.String(), "Fatima")

	rr = do(srv, http.MethodGet, "/tracking?year=2023", nil, false)
	assert.Contains(t, rr.Body.String(), "Suivi mensuel 2023")
}

func TestReceiptPageAndPDF(t *testing.T) {
	srv, ledger := newTestServer(t)
	sid := seed(t, ledger, "Ahmed")
	pid, _, err := ledger.AddPayment(context.Background(), core.Payment{StudentID: sid, Amount: "12500", Month: "Mars"})
	require.NoError(t, err)

	rr := do(srv, http.MethodGet, "/receipts/"+pid, nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, format.ReceiptNumber(pid, fixedNow))
	assert.Contains(t, body, "Montant Total")
	assert.Contains(t, body, "5 mars 2024")

	rr = do(srv, http.MethodGet, "/receipts/"+pid+"/pdf", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Recu-Ahmed-Mars.pdf")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF-"))

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/receipts/missing", nil, false).Code)
	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/receipts/missing/pdf", nil, false).Code)
}

func TestWriteRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(2))
	form := url.Values{"name": {"Ali"}, "level": {"BAC D"}}

	assert.Equal(t, http.StatusSeeOther, do(srv, http.MethodPost, "/students", form, false).Code)
	assert.Equal(t, http.StatusSeeOther, do(srv, http.MethodPost, "/students", form, false).Code)
	rr := do(srv, http.MethodPost, "/students", form, false)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/students", nil, false).Code, "reads are not limited")
}

type downLedger struct {
	Ledger
	err error
}

func (d downLedger) Ping(context.Context) error { return d.err }

func (d downLedger) Snapshot(context.Context) (core.Snapshot, error) {
	return core.Snapshot{}, &core.StorageError{Op: "list_students", Err: d.err}
}

func TestStorageFailures(t *testing.T) {
	down := downLedger{err: errors.New("connection refused")}
	srv, err := NewServer(":0", down, format.MustNew("fr", "MRU"))
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.stop)

	rr := do(srv, http.MethodGet, "/readyz", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")

	rr = do(srv, http.MethodGet, "/students", nil, false)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "Le stockage ne répond pas")
}

// listlessGateway stores writes but cannot list payments once offline is set.
type listlessGateway struct {
	store.Gateway
	offline bool
}

func (g *listlessGateway) ListPayments(ctx context.Context) ([]core.Payment, error) {
	if g.offline {
		return nil, errors.New("timeout")
	}
	return g.Gateway.ListPayments(ctx)
}

func TestSavedWriteWithFailedRefresh(t *testing.T) {
	gw := &listlessGateway{Gateway: memory.New(nil)}
	clock := func() time.Time { return fixedNow }
	ledger := services.NewLedger(gw, services.WithClock(clock))
	srv, err := NewServer(":0", ledger, format.MustNew("fr", "MRU", format.WithClock(clock)))
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.stop)

	sid := seed(t, ledger, "Ahmed")
	gw.offline = true

	rr := do(srv, http.MethodPost, "/students", url.Values{"name": {"Fatima"}, "level": {"Seconde"}}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "none", rr.Header().Get("HX-Reswap"))
	trigger := rr.Header().Get("HX-Trigger")
	assert.Contains(t, trigger, "student:saved")
	assert.Contains(t, trigger, `"warning"`)
	assert.Empty(t, rr.Body.String())

	rr = do(srv, http.MethodPost, "/payments", url.Values{"student_id": {sid}, "amount": {"500"}, "month": {"Mars"}}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/payments", rr.Header().Get("Location"))

	gw.offline = false
	snap, err := ledger.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Students, 2)
	assert.Len(t, snap.Payments, 1)
}
