package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	VariantFunction = "function"
	VariantLocal    = "local"

	DefaultUpstream   = "https://api.anthropic.com/v1/messages"
	DefaultAPIVersion = "2023-06-01"
	DefaultModel      = "claude-sonnet-4-20250514"
	DefaultMaxTokens  = 1024

	maxBodyBytes = 1 << 20
)

const allowHeaders = "X-CSRF-Token, X-Requested-With, Accept, Accept-Version, Content-Length, Content-MD5, Content-Type, Date, X-Api-Version, x-api-key, anthropic-version"

type Config struct {
	// Variant is "function" (server credential only, body forwarded as is) or
	// "local" (credential may come from the caller, body rebuilt).
	Variant          string
	APIKey           string
	Upstream         string
	APIVersion       string
	DefaultModel     string
	DefaultMaxTokens int
	// RateLimit is requests per second per client address; 0 disables it.
	RateLimit float64
	Burst     int
	Client    *http.Client
	Logger    *log.Logger
}

type handler struct {
	cfg     Config
	client  *http.Client
	limiter *limiterSet
}

// New returns the completion relay. It answers any path; mount it where
// callers expect it.
func New(cfg Config) http.Handler {
	if cfg.Variant == "" {
		cfg.Variant = VariantFunction
	}
	if cfg.Upstream == "" {
		cfg.Upstream = DefaultUpstream
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = DefaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	h := &handler{cfg: cfg, client: cfg.Client}
	if h.client == nil {
		h.client = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = newLimiterSet(rate.Limit(cfg.RateLimit), burst)
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if h.limiter != nil && !h.limiter.allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, map[string]any{"error": "Too many requests"})
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}

	apiKey := strings.TrimSpace(h.cfg.APIKey)
	if apiKey == "" {
		if h.cfg.Variant == VariantLocal {
			apiKey = strings.TrimSpace(r.Header.Get("x-api-key"))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, map[string]any{"error": "API key missing"})
				return
			}
		} else {
			h.cfg.Logger.Printf("proxy: api key missing")
			writeError(w, http.StatusInternalServerError, map[string]any{"error": "Server configuration error: API Key missing"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
		return
	}
	if h.cfg.Variant == VariantLocal {
		if body, err = h.rebuild(body); err != nil {
			writeError(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
			return
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.cfg.Upstream, bytes.NewReader(body))
	if err != nil {
		h.internal(w, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", h.cfg.APIVersion)

	resp, err := h.client.Do(req)
	if err != nil {
		h.internal(w, err)
		return
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.internal(w, err)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		h.cfg.Logger.Printf("proxy: upstream status %d: %s", resp.StatusCode, truncate(data, 512))
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(data)
}

// rebuild keeps only messages and max_tokens from the caller.
func (h *handler) rebuild(body []byte) ([]byte, error) {
	var in struct {
		MaxTokens int             `json:"max_tokens"`
		Messages  json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	out := struct {
		Model     string          `json:"model"`
		MaxTokens int             `json:"max_tokens"`
		Messages  json.RawMessage `json:"messages"`
	}{Model: h.cfg.DefaultModel, MaxTokens: in.MaxTokens, Messages: in.Messages}
	if out.MaxTokens <= 0 {
		out.MaxTokens = h.cfg.DefaultMaxTokens
	}
	if len(out.Messages) == 0 {
		out.Messages = json.RawMessage("[]")
	}
	return json.Marshal(out)
}

func (h *handler) internal(w http.ResponseWriter, err error) {
	h.cfg.Logger.Printf("proxy: forward failed: %v", err)
	writeError(w, http.StatusInternalServerError, map[string]any{"error": "Internal Server Error", "details": err.Error()})
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET,OPTIONS,PATCH,DELETE,POST,PUT")
	h.Set("Access-Control-Allow-Headers", allowHeaders)
}

func writeError(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}

const minLimiterIdle = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterSet holds one token bucket per client address. Entries idle for
// at least a full refill are dropped.
type limiterSet struct {
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	mu        sync.Mutex
	m         map[string]*limiterEntry
	lastSweep time.Time
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	idle := minLimiterIdle
	if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
		idle = refill
	}
	return &limiterSet{limit: limit, burst: burst, idle: idle, now: time.Now, m: map[string]*limiterEntry{}}
}

func (s *limiterSet) allow(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) >= s.idle {
		s.sweep(now)
	}
	e, ok := s.m[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(s.limit, s.burst)}
		s.m[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (s *limiterSet) sweep(now time.Time) {
	for k, e := range s.m {
		if now.Sub(e.seen) >= s.idle {
			delete(s.m, k)
		}
	}
	s.lastSweep = now
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
