package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// dummyHandler records whether it was called.
type dummyHandler struct {
	called bool
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	w.WriteHeader(http.StatusOK)
}

func TestBearerAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		token      string
		hash       string
		header     string
		wantCalled bool
	}{
		{name: "valid token", token: "s3cret", header: "Bearer s3cret", wantCalled: true},
		{name: "lowercase scheme", token: "s3cret", header: "bearer s3cret", wantCalled: true},
		{name: "wrong token", token: "s3cret", header: "Bearer nope"},
		{name: "missing header", token: "s3cret"},
		{name: "basic scheme", token: "s3cret", header: "Basic s3cret"},
		{name: "empty bearer", token: "s3cret", header: "Bearer "},
		{name: "valid hash", hash: string(hash), header: "Bearer s3cret", wantCalled: true},
		{name: "wrong against hash", hash: string(hash), header: "Bearer s3cre"},
		{name: "hash wins over token", token: "other", hash: string(hash), header: "Bearer other"},
		{name: "nothing configured", header: "Bearer "},
		{name: "nothing configured with token", header: "Bearer anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BearerAuth(tt.token, tt.hash)(dummy)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/settori", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)

			if dummy.called != tt.wantCalled {
				t.Fatalf("next called = %v, want %v", dummy.called, tt.wantCalled)
			}
			if tt.wantCalled {
				if rec.Code != http.StatusOK {
					t.Errorf("expected 200 OK, got %d", rec.Code)
				}
				return
			}
			if rec.Code != http.StatusForbidden {
				t.Errorf("expected 403 Forbidden, got %d", rec.Code)
			}
			if got := rec.Body.String(); got != "{\"error\":\"access denied\"}\n" {
				t.Errorf("unexpected body %q", got)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("unexpected content type %q", ct)
			}
		})
	}
}
