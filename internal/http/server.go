package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

// Ledger is the transaction service consumed by the handlers.
type Ledger interface {
	Create(ctx context.Context, userID uuid.UUID, in services.TransactionInput) (core.Transaction, core.Summary, error)
	Update(ctx context.Context, userID uuid.UUID, id int64, in services.TransactionInput) (core.Transaction, core.Summary, error)
	Delete(ctx context.Context, userID uuid.UUID, id int64) (core.Summary, error)
	List(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error)
	Summary(ctx context.Context, userID uuid.UUID) (core.Summary, error)
}

// UserStore is the account backend for the auth routes.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

type Server struct {
	http.Server
	ledger      Ledger
	users       UserStore
	tokens      *auth.TokenIssuer
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, users UserStore, tokens *auth.TokenIssuer) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:      ledger,
		users:       users,
		tokens:      tokens,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.Handle("/api/auth/register", s.withTrace(http.HandlerFunc(s.handleRegister)))
	mux.Handle("/api/auth/login", s.withTrace(http.HandlerFunc(s.handleLogin)))

	// Bearer auth on every transaction route; handlers trust the context id.
	mux.Handle("/api/transactions", s.withTrace(tokens.Middleware(http.HandlerFunc(s.handleTransactions))))
	mux.Handle("/api/transactions/", s.withTrace(tokens.Middleware(http.HandlerFunc(s.handleTransactionSubroutes))))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
