package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRESTController_Hangup(t *testing.T) {
	t.Run("posts completed status", func(t *testing.T) {
		var gotPath, gotAuth, gotStatus string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			_ = r.ParseForm()
			gotStatus = r.PostFormValue("Status")
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := NewRESTController(srv.URL+"/", "tok")
		if err := c.Hangup(context.Background(), "CA123"); err != nil {
			t.Fatalf("Hangup: %v", err)
		}

		if gotPath != "/calls/CA123" {
			t.Errorf("path = %q, want /calls/CA123", gotPath)
		}
		if gotAuth != "Bearer tok" {
			t.Errorf("auth = %q", gotAuth)
		}
		if gotStatus != "completed" {
			t.Errorf("status form value = %q", gotStatus)
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "no such call", http.StatusNotFound)
		}))
		defer srv.Close()

		c := NewRESTController(srv.URL, "")
		if err := c.Hangup(context.Background(), "CA404"); err == nil {
			t.Fatal("expected error for 404")
		}
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		c := NewRESTController("http://127.0.0.1:1", "")
		if err := c.Hangup(context.Background(), "CA1"); err == nil {
			t.Fatal("expected connection error")
		}
	})
}
