// Package api serves the ledger service over HTTP and provides a typed
// client for it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bitfsorg/sharestore-go/auth"
	"github.com/bitfsorg/sharestore-go/ledger"
	"github.com/bitfsorg/sharestore-go/logging"
	"github.com/bitfsorg/sharestore-go/metrics"
	"github.com/bitfsorg/sharestore-go/revshare"
)

// MaxBodySize bounds every request body.
const MaxBodySize = 1 << 20

// Server exposes a ledger.Service as a JSON API.
type Server struct {
	svc          *ledger.Service
	log          *slog.Logger
	metrics      *metrics.HTTPMetrics
	serveMetrics bool
	guard        *auth.ReplayGuard
	router       http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics records request metrics in m and, when serve is set, exposes
// the Prometheus registry at /metrics.
func WithMetrics(m *metrics.HTTPMetrics, serve bool) Option {
	return func(s *Server) {
		s.metrics = m
		s.serveMetrics = serve
	}
}

// WithReplayGuard sets the guard that rejects stale and replayed signed
// requests. Without it the server uses a guard with the default skew.
func WithReplayGuard(g *auth.ReplayGuard) Option {
	return func(s *Server) { s.guard = g }
}

// NewServer constructs the router over svc.
func NewServer(svc *ledger.Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = auth.NewReplayGuard(0, 0)
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.serveMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/ledgers/{id}", s.GetLedger)
		v1.Get("/admins/{admin}/ledgers", s.ListLedgers)
		v1.Get("/accounts/{id}/balance", s.GetBalance)
		v1.Get("/token-accounts/{handle}", s.GetTokenAccount)
		v1.Post("/ledgers/{id}/distribute", s.Distribute)

		v1.Group(func(signed chi.Router) {
			signed.Use(s.authenticate)
			signed.Post("/ledgers", s.CreateLedger)
			signed.Put("/ledgers/{id}/holders", s.SetHolders)
			signed.Post("/ledgers/{id}/holders", s.AddHolder)
			signed.Delete("/ledgers/{id}/holders/{holder}", s.RemoveHolder)
			signed.Post("/ledgers/{id}/enable", s.Enable)
			signed.Post("/ledgers/{id}/disable", s.Disable)
			signed.Post("/ledgers/{id}/deposit", s.Deposit)
			signed.Post("/token-accounts", s.OpenTokenAccount)
		})
	})
	return r
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type callerKey struct{}

// authenticate verifies the signed-request headers against the buffered
// body, consumes the request nonce and stores the caller identity in the
// request context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: read body: %v", ErrBadRequest, err))
			return
		}
		if len(body) > MaxBodySize {
			s.writeError(w, r, fmt.Errorf("%w: body exceeds %d bytes", ErrBadRequest, MaxBodySize))
			return
		}
		caller, err := s.guard.Verify(r, body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// callerFrom returns the identity stored by authenticate.
func callerFrom(ctx context.Context) (revshare.Identity, error) {
	id, ok := ctx.Value(callerKey{}).(revshare.Identity)
	if !ok {
		return revshare.Identity{}, auth.ErrMissingCredentials
	}
	return id, nil
}

// observe logs every request and records it under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		var route string
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.metrics.Observe(route, status, elapsed)
		s.log.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// ---------------------------------------------------------------------------
// Request and response bodies
// ---------------------------------------------------------------------------

// CreateLedgerRequest is the body of POST /v1/ledgers. A nil Asset creates
// a native ledger.
type CreateLedgerRequest struct {
	Name     string             `json:"name"`
	Asset    *revshare.Identity `json:"asset,omitempty"`
	Decimals uint8              `json:"decimals"`
}

// SetHoldersRequest is the body of PUT /v1/ledgers/{id}/holders.
type SetHoldersRequest struct {
	Holders []revshare.Holder `json:"holders"`
}

// DepositRequest is the body of POST /v1/ledgers/{id}/deposit.
type DepositRequest struct {
	Amount uint64 `json:"amount"`
}

// DistributeRequest is the body of POST /v1/ledgers/{id}/distribute.
// Without destinations every holder is paid at its default handle.
type DistributeRequest struct {
	Destinations []revshare.Identity `json:"destinations,omitempty"`
}

// OpenTokenAccountRequest is the body of POST /v1/token-accounts.
type OpenTokenAccountRequest struct {
	Asset revshare.Identity `json:"asset"`
}

// TokenAccountResponse carries a token account handle.
type TokenAccountResponse struct {
	Handle revshare.Identity `json:"handle"`
}

// LedgersResponse lists the ledgers of one administrator.
type LedgersResponse struct {
	Ledgers []*revshare.Ledger `json:"ledgers"`
}

// BalanceResponse carries the native balance of an account.
type BalanceResponse struct {
	Account revshare.Identity `json:"account"`
	Balance uint64            `json:"balance"`
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// GetLedger returns one ledger.
func (s *Server) GetLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentity(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.svc.GetLedger(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// ListLedgers returns the ledgers administered by one identity.
func (s *Server) ListLedgers(w http.ResponseWriter, r *http.Request) {
	admin, err := pathIdentity(r, "admin")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ls, err := s.svc.ListByAdmin(admin)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ls == nil {
		ls = []*revshare.Ledger{}
	}
	writeJSON(w, http.StatusOK, LedgersResponse{Ledgers: ls})
}

// GetBalance returns the native balance of an account.
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentity(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bal, err := s.svc.Balance(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Account: id, Balance: bal})
}

// GetTokenAccount returns a token account.
func (s *Server) GetTokenAccount(w http.ResponseWriter, r *http.Request) {
	handle, err := pathIdentity(r, "handle")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	acct, err := s.svc.TokenAccount(handle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// CreateLedger creates a ledger administered by the caller.
func (s *Server) CreateLedger(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req CreateLedgerRequest
	if err := decodeBody(r.Body, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	kind := revshare.NativeKind(req.Decimals)
	if req.Asset != nil {
		kind = revshare.FungibleKind(*req.Asset, req.Decimals)
	}
	l, err := s.svc.CreateLedger(caller, req.Name, kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// SetHolders replaces the holder list.
func (s *Server) SetHolders(w http.ResponseWriter, r *http.Request) {
	var req SetHoldersRequest
	s.mutate(w, r, &req, func(caller, id revshare.Identity) (*revshare.Ledger, error) {
		return s.svc.SetHolders(caller, id, req.Holders)
	})
}

// AddHolder appends one holder.
func (s *Server) AddHolder(w http.ResponseWriter, r *http.Request) {
	var req revshare.Holder
	s.mutate(w, r, &req, func(caller, id revshare.Identity) (*revshare.Ledger, error) {
		return s.svc.AddHolder(caller, id, req)
	})
}

// RemoveHolder removes the holder named in the path.
func (s *Server) RemoveHolder(w http.ResponseWriter, r *http.Request) {
	holder, err := pathIdentity(r, "holder")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.mutate(w, r, nil, func(caller, id revshare.Identity) (*revshare.Ledger, error) {
		return s.svc.RemoveHolder(caller, id, holder)
	})
}

// Enable turns distribution on.
func (s *Server) Enable(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, nil, s.svc.Enable)
}

// Disable turns distribution off.
func (s *Server) Disable(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, nil, s.svc.Disable)
}

// mutate runs an administrative operation for the authenticated caller on
// the ledger in the path and writes the updated ledger. A non-nil req is
// decoded from the body first.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, req any, fn func(caller, id revshare.Identity) (*revshare.Ledger, error)) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathIdentity(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req != nil {
		if err := decodeBody(r.Body, req, false); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	l, err := fn(caller, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Deposit moves value from the caller into a ledger.
func (s *Server) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := pathIdentity(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req DepositRequest
	if err := decodeBody(r.Body, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.Deposit(caller, id, req.Amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Distribute pays out the ledger's pool. It needs no credentials.
func (s *Server) Distribute(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentity(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req DistributeRequest
	if err := decodeBody(http.MaxBytesReader(w, r.Body, MaxBodySize), &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}

	var receipt *revshare.Receipt
	if req.Destinations == nil {
		receipt, err = s.svc.DistributeDefault(r.Context(), id)
	} else {
		receipt, err = s.svc.Distribute(r.Context(), id, req.Destinations)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// OpenTokenAccount opens the caller's default token account for an asset.
func (s *Server) OpenTokenAccount(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req OpenTokenAccountRequest
	if err := decodeBody(r.Body, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	handle, err := s.svc.OpenTokenAccount(caller, req.Asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenAccountResponse{Handle: handle})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func pathIdentity(r *http.Request, name string) (revshare.Identity, error) {
	id, err := revshare.ParseIdentity(chi.URLParam(r, name))
	if err != nil {
		return revshare.Identity{}, fmt.Errorf("%w: %s: %v", ErrBadRequest, name, err)
	}
	return id, nil
}

// decodeBody decodes a JSON body into v. An empty body is accepted only
// when optional is set.
func decodeBody(body io.Reader, v any, optional bool) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Code: code, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
