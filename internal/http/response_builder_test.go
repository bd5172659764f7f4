package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTMXResponseBuilderTriggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerPaymentSaved("p1", "s1").
		TriggerFormReset().
		TriggerSuccessNotification("Paiement enregistré.").
		BodyHTML([]byte("<tr></tr>")).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{"payment:saved", "form:reset", "show-notification"} {
		if _, ok := triggers[name]; !ok {
			t.Errorf("missing trigger %q in %v", name, triggers)
		}
	}
	if !strings.Contains(string(triggers["payment:saved"]), `"student_id":"s1"`) {
		t.Errorf("payment:saved = %s", triggers["payment:saved"])
	}
}

func TestHTMXResponseBuilderNoTriggers(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusNoContent).Header("X-Test", "1").Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger must be absent without triggers")
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusConflict, `<b>L'élève</b>`).Write(w)

	if w.Code != http.StatusConflict {
		t.Errorf("Status code = %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "<b>") {
		t.Errorf("message not escaped: %s", body)
	}
	if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
		t.Errorf("HX-Trigger = %q", w.Header().Get("HX-Trigger"))
	}
}

func TestRateLimiterWindow(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.stop()
	now := fixedNow
	rl.now = func() time.Time { return now }

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests must pass")
	}
	if rl.allow("a") {
		t.Fatal("third request in the window must be refused")
	}
	if !rl.allow("b") {
		t.Fatal("clients are limited independently")
	}
	if rl.rejected() != 1 {
		t.Errorf("rejected = %d", rl.rejected())
	}

	now = now.Add(rateWindow)
	if !rl.allow("a") {
		t.Fatal("a new window must reset the count")
	}

	now = now.Add(staleClientAfter + time.Second)
	if removed := rl.cleanupStaleEntries(); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if rl.activeClients() != 0 {
		t.Errorf("activeClients = %d", rl.activeClients())
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := extractClientIP(req); got != "203.0.113.9" {
		t.Errorf("untrusted peer: got %q", got)
	}

	req.RemoteAddr = "10.0.0.2:5000"
	if got := extractClientIP(req); got != "198.51.100.1" {
		t.Errorf("trusted proxy: got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "not-an-ip")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	if got := extractClientIP(req); got != "198.51.100.7" {
		t.Errorf("real ip fallback: got %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	m := &securityMetrics{}
	ok := httptest.NewRequest(http.MethodGet, "/students?q=ahmed", nil)
	if detectSuspiciousRequest(ok, m) {
		t.Error("plain search flagged")
	}
	bad := httptest.NewRequest(http.MethodGet, "/students?q=1+union+select", nil)
	if !detectSuspiciousRequest(bad, m) {
		t.Error("sql probe not flagged")
	}
	scan := httptest.NewRequest(http.MethodGet, "/", nil)
	scan.Header.Set("User-Agent", "sqlmap/1.7")
	if !detectSuspiciousRequest(scan, m) {
		t.Error("scanner agent not flagged")
	}
	if m.suspicious() != 2 {
		t.Errorf("suspicious = %d", m.suspicious())
	}
}
