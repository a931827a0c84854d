package server

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"jewelpo/internal/auth"
	"jewelpo/internal/config"
	"jewelpo/internal/handlers/admin"
	"jewelpo/internal/handlers/procurement"
	reporthandlers "jewelpo/internal/handlers/reports"
	"jewelpo/internal/metrics"
	"jewelpo/internal/purchase"
	"jewelpo/internal/reports"
	"jewelpo/internal/response"
	"jewelpo/internal/websocket"
)

const loginPattern = "POST /api/v1/auth/login"

// App holds shared dependencies for the application.
type App struct {
	DB         *sqlx.DB
	Log        *zap.Logger
	Hub        *websocket.Hub
	Metrics    *metrics.Metrics
	Tokens     *auth.TokenIssuer
	Limiter    *RateLimiter
	Purchase   *purchase.Service
	Reports    *reports.Service
	BackupDir  string
	LoginRate  int
	TrustProxy bool
}

// New wires the services for cfg around an open database.
func New(cfg *config.Config, db *sqlx.DB, log *zap.Logger) *App {
	m := metrics.New(cfg.Service)
	hub := websocket.NewHub(log, m.WSClients)
	return &App{
		DB:         db,
		Log:        log,
		Hub:        hub,
		Metrics:    m,
		Tokens:     auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL),
		Limiter:    NewRateLimiter(),
		Purchase:   purchase.NewService(db, hub, m, log),
		Reports:    reports.NewService(db),
		BackupDir:  cfg.DB.BackupDir,
		LoginRate:  cfg.Server.LoginRatePerMinute,
		TrustProxy: cfg.Server.TrustProxy,
	}
}

// handle registers fn under pattern and records the pattern for logging and metrics.
func (a *App) handle(mux *http.ServeMux) func(string, func(http.ResponseWriter, *http.Request)) {
	return func(pattern string, fn func(http.ResponseWriter, *http.Request)) {
		var h http.Handler = http.HandlerFunc(fn)
		if pattern == loginPattern {
			h = LimitPerMinute(a.Limiter, "login", a.LoginRate)(h)
		}
		mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rt := routeFrom(r.Context()); rt != nil {
				rt.pattern = pattern
			}
			h.ServeHTTP(w, r)
		}))
	}
}

// Handler builds the routed and wrapped http.Handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := a.handle(mux)

	(&admin.Handler{DB: a.DB, Tokens: a.Tokens, BackupDir: a.BackupDir}).Register(handle)
	(&procurement.Handler{Purchase: a.Purchase}).Register(handle)
	(&reporthandlers.Handler{DB: a.DB, Reports: a.Reports}).Register(handle)

	handle("GET /api/v1/ws", func(w http.ResponseWriter, r *http.Request) {
		rc, ok := auth.FromContext(r.Context())
		if !ok {
			response.Err(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		a.Hub.HandleWebSocket(w, r, rc)
	})
	handle("GET /metrics", a.Metrics.Handler().ServeHTTP)

	return Chain(mux,
		RequestID(a.Log),
		Logging,
		Metrics(a.Metrics),
		SecurityHeaders,
		ClientAddr(a.TrustProxy),
		GzipMiddleware,
		Recover,
		RequireAuth(a.Tokens, a.DB),
	)
}
