package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/fileintake/internal/core"
	"github.com/JonMunkholm/fileintake/internal/logging"
)

func TestTrustedRealIP(t *testing.T) {
	trusted := []string{"10.0.0.0/8", "127.0.0.1", " ", "not-an-ip"}

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		want       string
	}{
		{"untrusted peer keeps its address", "203.0.113.9:5000", "198.51.100.1", "", "203.0.113.9:5000"},
		{"trusted cidr uses X-Real-IP", "10.1.2.3:5000", "198.51.100.1", "198.51.100.2", "198.51.100.1"},
		{"trusted address uses first forwarded hop", "127.0.0.1:5000", "", "198.51.100.2, 10.0.0.1", "198.51.100.2"},
		{"trusted peer without headers", "10.1.2.3:5000", "", "", "10.1.2.3:5000"},
		{"garbage header is ignored", "10.1.2.3:5000", "nonsense", "", "10.1.2.3:5000"},
		{"ipv4 mapped peer", "[::ffff:10.9.9.9]:5000", "198.51.100.7", "", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := map[string]string{
		"192.0.2.1:1234":    "192.0.2.1",
		"198.51.100.1":      "198.51.100.1",
		"[2001:db8::1]:443": "2001:db8::1",
		"unix-socket":       "unix-socket",
	}
	for remote, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		if got := ClientIP(req); got != want {
			t.Errorf("ClientIP(%q) = %q, want %q", remote, got, want)
		}
	}
}

func TestAPIKeyAuth(t *testing.T) {
	owners := map[string]string{"key-a": "alice", "key-b": "bob"}

	tests := []struct {
		name      string
		required  bool
		key       string
		wantCode  int
		wantOwner string
	}{
		{"optional without key", false, "", http.StatusOK, core.AnonymousOwner},
		{"optional with valid key", false, "key-a", http.StatusOK, "alice"},
		{"optional with invalid key", false, "key-c", http.StatusForbidden, ""},
		{"required without key", true, "", http.StatusUnauthorized, ""},
		{"required with valid key", true, "key-b", http.StatusOK, "bob"},
		{"required with prefix of key", true, "key", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var owner string
			h := APIKeyAuth(tt.required, owners)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				owner = core.OwnerFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/uploads", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if owner != tt.wantOwner {
				t.Errorf("owner = %q, want %q", owner, tt.wantOwner)
			}
			if tt.wantCode != http.StatusOK && !strings.Contains(rec.Body.String(), `"success":false`) {
				t.Errorf("body = %s, want failure envelope", rec.Body.String())
			}
		})
	}
}

func TestMatchAPIKey(t *testing.T) {
	keys := []string{"first", "second"}

	if got, ok := matchAPIKey("second", keys); !ok || got != "second" {
		t.Errorf("matchAPIKey(second) = %q, %v", got, ok)
	}
	if _, ok := matchAPIKey("third", keys); ok {
		t.Error("matchAPIKey(third) matched")
	}
	if _, ok := matchAPIKey("first", nil); ok {
		t.Error("matchAPIKey with no keys matched")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "info", "json"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/uploads/files/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := buf.String()
	for _, want := range []string{`"status":418`, `"bytes":15`, `"path":"/uploads/files/x"`, `"method":"GET"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}
