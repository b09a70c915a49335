package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func serve(h http.Handler, method, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/claude", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestPreflight(t *testing.T) {
	for _, variant := range []string{VariantFunction, VariantLocal} {
		h := New(Config{Variant: variant, Logger: quiet(), RateLimit: 0.0001, Burst: 1})
		for i := 0; i < 3; i++ {
			rec := serve(h, http.MethodOptions, "garbage", map[string]string{"Authorization": "x"})
			if rec.Code != http.StatusOK {
				t.Fatalf("%s preflight status=%d", variant, rec.Code)
			}
			if rec.Body.Len() != 0 {
				t.Fatalf("%s preflight body should be empty, got %q", variant, rec.Body.String())
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Fatalf("%s missing CORS origin", variant)
			}
			if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "x-api-key") {
				t.Fatalf("%s allow headers missing x-api-key", variant)
			}
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := serve(New(Config{APIKey: "k", Logger: quiet()}), http.MethodGet, "", nil)
	if rec.Code != http.StatusMethodNotAllowed || decodeError(t, rec) != "Method not allowed" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS headers must be on every response")
	}
}

func TestFunctionVariantMissingKey(t *testing.T) {
	h := New(Config{Variant: VariantFunction, Logger: quiet()})
	for _, body := range []string{`{"messages":[]}`, "not json", ""} {
		rec := serve(h, http.MethodPost, body, map[string]string{"x-api-key": "caller-key"})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d for body %q", rec.Code, body)
		}
		if decodeError(t, rec) != "Server configuration error: API Key missing" {
			t.Fatalf("unexpected error body %s", rec.Body.String())
		}
	}
}

func TestLocalVariantMissingKey(t *testing.T) {
	rec := serve(New(Config{Variant: VariantLocal, Logger: quiet()}), http.MethodPost, `{"messages":[]}`, nil)
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec) != "API key missing" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestFunctionVariantForwardsVerbatim(t *testing.T) {
	var gotBody, gotKey, gotVersion string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer upstream.Close()

	h := New(Config{Variant: VariantFunction, APIKey: "server-key", Upstream: upstream.URL, Logger: quiet()})
	in := `{"model":"m","max_tokens":5,"messages":[{"role":"user","content":"hi"}]}`
	rec := serve(h, http.MethodPost, in, map[string]string{"x-api-key": "caller-key"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upstream status should pass through, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_request_error") {
		t.Fatalf("upstream body should pass through, got %s", rec.Body.String())
	}
	if gotBody != in || gotKey != "server-key" || gotVersion != DefaultAPIVersion {
		t.Fatalf("forwarded body=%q key=%q version=%q", gotBody, gotKey, gotVersion)
	}
}

func TestLocalVariantRebuildsBody(t *testing.T) {
	var got map[string]any
	var gotKey string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		gotKey = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer upstream.Close()

	h := New(Config{Variant: VariantLocal, Upstream: upstream.URL, Logger: quiet()})
	rec := serve(h, http.MethodPost, `{"model":"ignored","messages":[{"role":"user","content":"hi"}],"extra":1}`, map[string]string{"x-api-key": "caller-key"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if gotKey != "caller-key" || got["model"] != DefaultModel || got["max_tokens"] != float64(DefaultMaxTokens) {
		t.Fatalf("unexpected upstream request key=%q body=%v", gotKey, got)
	}
	if _, ok := got["extra"]; ok {
		t.Fatalf("extra fields must be dropped: %v", got)
	}
}

func TestInvalidJSON(t *testing.T) {
	rec := serve(New(Config{APIKey: "k", Logger: quiet()}), http.MethodPost, "{", nil)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "Invalid JSON body" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial refused")
}

func TestTransportFailure(t *testing.T) {
	h := New(Config{APIKey: "k", Upstream: "http://upstream.invalid", Client: &http.Client{Transport: failingTransport{}}, Logger: quiet()})
	rec := serve(h, http.MethodPost, `{}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "Internal Server Error" || !strings.Contains(body["details"], "dial refused") {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRateLimit(t *testing.T) {
	h := New(Config{Variant: VariantLocal, RateLimit: 0.0001, Burst: 2, Logger: quiet()})
	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(h, http.MethodPost, `{}`, nil).Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestLimiterSetDropsIdleClients(t *testing.T) {
	s := newLimiterSet(rate.Limit(1), 1)
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if !s.allow("10.0.0.1") || s.allow("10.0.0.1") {
		t.Fatalf("expected burst of one for the first client")
	}
	if !s.allow("10.0.0.2") {
		t.Fatalf("second client should have its own bucket")
	}
	if s.size() != 2 {
		t.Fatalf("size=%d want 2", s.size())
	}

	now = now.Add(minLimiterIdle)
	if !s.allow("10.0.0.3") {
		t.Fatalf("new client should be allowed")
	}
	if s.size() != 1 {
		t.Fatalf("idle clients should be dropped, size=%d", s.size())
	}
	if !s.allow("10.0.0.1") {
		t.Fatalf("returning client should start with a full bucket")
	}
}
