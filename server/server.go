// Package server exposes the gateway over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/birmacher/dealing-with-ai/gateway"
	"github.com/birmacher/dealing-with-ai/limiter"
	"github.com/birmacher/dealing-with-ai/model"
)

const (
	// APIPath is the only gateway route
	APIPath = "/v1/api/dealingWithAI"
	// HealthPath answers liveness probes
	HealthPath = "/healthz"
	// MaxBodyBytes caps the request body
	MaxBodyBytes = 1 << 20
)

// Service handles one decoded request
type Service interface {
	Handle(ctx context.Context, clientKey string, payload model.RequestPayload) (gateway.Result, error)
}

// Options tunes the HTTP layer
type Options struct {
	// TrustProxy takes the client key from the first X-Forwarded-For hop
	TrustProxy bool
	// Now overrides the clock used for rate limit headers, for tests
	Now func() time.Time
}

type handler struct {
	svc        Service
	trustProxy bool
	now        func() time.Time
}

// NewHandler returns the gateway routes wrapped with request id and panic recovery
func NewHandler(svc Service, opts Options) http.Handler {
	h := &handler{
		svc:        svc,
		trustProxy: opts.TrustProxy,
		now:        opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+APIPath, h.dealingWithAI)
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return withRequestID(withRecovery(mux))
}

func (h *handler) dealingWithAI(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	log := requestLogger(r.Context())

	var payload model.RequestPayload
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(&payload); err != nil {
		// Treated as a request without a value
		log.Debugw("Could not decode request body", "error", err)
		payload = model.RequestPayload{}
	}

	res, err := h.svc.Handle(r.Context(), clientKey(r, h.trustProxy), payload)
	if res.RateKnown {
		setRateLimitHeaders(w, res.RateLimit, h.now())
	}

	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Errorw("Request failed", "error", err)
		}
		writeJSON(w, status, model.Failure(gateway.PublicMessage(err)))
		return
	}

	writeJSON(w, http.StatusOK, model.Success(res.Text))
}

func statusFor(err error) int {
	switch gateway.KindOf(err) {
	case gateway.KindEmptyInput, gateway.KindTooLong:
		return http.StatusBadRequest
	case gateway.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func setRateLimitHeaders(w http.ResponseWriter, d limiter.Decision, now time.Time) {
	reset := seconds(d.RetryAfter(now))
	w.Header().Set("RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("RateLimit-Reset", strconv.Itoa(reset))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(reset))
	}
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// clientKey identifies the caller for rate limiting
func clientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Server runs an http.Server until its context ends
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// New creates a server listening on addr
func New(addr string, h http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: 5 * time.Second,
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run listens until ctx is done and then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
