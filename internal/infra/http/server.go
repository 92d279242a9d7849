package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Spok95/barber-club/internal/infra/payments"
)

type Options struct {
	Addr          string
	CORSOrigins   []string
	JWTSecret     string // пусто — /api/v1 и функция отмены без авторизации
	ExposeMetrics bool
}

// Deps — обработчики, которые сервер монтирует.
type Deps struct {
	Subscriptions *SubscriptionsHandler
	Reports       *ReportsHandler
	CancelFunc    http.Handler // POST/OPTIONS /functions/v1/asaas-subscription-actions
}

type Server struct {
	srv *http.Server
}

func New(opts Options, deps Deps, log *slog.Logger) *Server {
	return &Server{srv: &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts, deps, log),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewRouter(opts Options, deps Deps, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if opts.ExposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// у функции отмены свой CORS, он должен стоять и на ответах 401
	if deps.CancelFunc != nil {
		r.Group(func(fn chi.Router) {
			fn.Use(payments.CORS)
			if opts.JWTSecret != "" {
				fn.Use(JWTAuth(opts.JWTSecret))
			}
			fn.Method(http.MethodPost, "/functions/v1/asaas-subscription-actions", deps.CancelFunc)
			fn.Method(http.MethodOptions, "/functions/v1/asaas-subscription-actions", deps.CancelFunc)
		})
	}

	r.Route("/api/v1", func(api chi.Router) {
		origins := opts.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
		if opts.JWTSecret != "" {
			api.Use(JWTAuth(opts.JWTSecret))
		} else {
			log.Warn("auth.jwt_secret is empty, /api/v1 is not protected")
		}

		if h := deps.Subscriptions; h != nil {
			api.Get("/subscriptions/usage", h.CheckUsage)
			api.Get("/subscriptions/renewal-preview", h.RenewalPreview)
			api.Get("/subscriptions/{subscriptionID}/usage", h.UsageSummary)
			api.Post("/subscriptions/{subscriptionID}/usage", h.RecordUsage)
			api.Post("/subscriptions/{subscriptionID}/renew", h.Renew)
		}
		if h := deps.Reports; h != nil {
			api.Get("/barbershops/{barbershopID}/reports/vip-club", h.VIPClub)
		}
	})

	return r
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
