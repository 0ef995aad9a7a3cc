package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authwatchd/internal/types"
)

func TestNotifier_PostsAlertJSON(t *testing.T) {
	received := make(chan types.SecurityAlert, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var a types.SecurityAlert
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- a
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	n.Notify(types.SecurityAlert{
		ID:       "a1",
		Type:     types.AlertBruteForce,
		Key:      "10.0.0.5",
		Severity: types.AlertHigh,
	})

	select {
	case a := <-received:
		if a.Key != "10.0.0.5" || a.Type != types.AlertBruteForce {
			t.Errorf("Unexpected alert payload: %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Webhook was never called")
	}
}

func TestNotifier_EmptyURLIsNoop(t *testing.T) {
	n := NewNotifier("")
	// Must not panic or block.
	n.Notify(types.SecurityAlert{ID: "a1"})
}
