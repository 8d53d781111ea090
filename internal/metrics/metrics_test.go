package metrics

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // must not panic on duplicate registration

	ObservePage("https://search.suning.com/phone", "ok", 120*time.Millisecond)
	ObserveOutcome("success")
	ObserveRecordStored()
	ObserveStoreFailure()
	IncActiveWorkers()
	DecActiveWorkers()
	SetQueuePending(3)
}

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://Search.Suning.COM/list?p=1", "search.suning.com"},
		{"example.org/page", "example.org"},
		{"://notaurl", "unknown"},
		{"", "unknown"},
	}
	for _, tc := range cases {
		if got := SanitizeSite(tc.in); got != tc.want {
			t.Fatalf("SanitizeSite(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
