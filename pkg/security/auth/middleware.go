package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Source is a place a token may be presented.
type Source struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// DefaultSources accepts "Authorization: Bearer <token>" and
// "X-Warden-Token: <token>".
var DefaultSources = []Source{
	{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	{Type: "header", Name: "X-Warden-Token"},
}

// Middleware rejects requests without a valid token.
type Middleware struct {
	store   TokenStore
	sources []Source
	logger  *slog.Logger
}

// NewMiddleware creates the middleware. Empty sources means DefaultSources.
func NewMiddleware(store TokenStore, sources []Source, logger *slog.Logger) *Middleware {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{store: store, sources: sources, logger: logger}
}

// Handle wraps next with token authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := m.extract(r)
		if err != nil {
			m.logger.Warn("missing API token",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="warden"`)
			http.Error(w, "Missing API token", http.StatusUnauthorized)
			return
		}

		info, err := m.store.Validate(token)
		if err != nil {
			m.logger.Warn("rejected API token",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="warden", error="invalid_token"`)
			http.Error(w, "Invalid API token", http.StatusUnauthorized)
			return
		}

		m.logger.Debug("API token accepted", "token_name", info.Name, "path", r.URL.Path)

		ctx := context.WithValue(r.Context(), tokenInfoKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) extract(r *http.Request) (string, error) {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, nil
			}
			if rest, ok := strings.CutPrefix(value, source.Scheme+" "); ok && rest != "" {
				return rest, nil
			}

		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, nil
			}
		}
	}
	return "", errors.New("no API token found")
}

type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const tokenInfoKey contextKey = "token_info"

// TokenFrom returns the authenticated token of a request.
func TokenFrom(ctx context.Context) (*TokenInfo, bool) {
	info, ok := ctx.Value(tokenInfoKey).(*TokenInfo)
	return info, ok
}
