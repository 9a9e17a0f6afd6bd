package internal

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"helpdesk-api/internal/auth"
	"helpdesk-api/internal/cache"
	"helpdesk-api/internal/config"
	"helpdesk-api/internal/handlers"
	"helpdesk-api/internal/notify"
	"helpdesk-api/internal/spend"
	"helpdesk-api/internal/store"
	"helpdesk-api/internal/tenant"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Roles allowed to change the asset register and subscriptions
var adminRoles = []string{"org_admin", "it_admin"}

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Store      *store.Store
	Cache      cache.Store
	Resolver   *tenant.Resolver
	Rates      *spend.Converter
	Notifier   *notify.Notifier
	Logger     *zap.Logger

	cfg      *config.Config
	validate *validator.Validate
	now      func() time.Time
	redis    *redis.Client
}

// Options are the collaborators New wires together. Only Config and DB are required.
type Options struct {
	Config *config.Config
	DB     *sql.DB
	Pool   *pgxpool.Pool
	Cache  cache.Store
	Rates  *spend.Converter
	Logger *zap.Logger
	Now    func() time.Time
}

// NewServer opens the database, the import pool and the cache backend described by cfg
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	db, err := sql.Open("pgx", cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	// Also create a pgxpool for the importer
	pool, err := pgxpool.New(pingCtx, cfg.DBDSN)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create pgxpool: %w", err)
	}

	rates, err := spend.LoadConverter(cfg.CurrencyRatesFile)
	if err != nil {
		db.Close()
		pool.Close()
		return nil, err
	}

	opts := Options{Config: cfg, DB: db, Pool: pool, Rates: rates, Logger: logger}

	var rdb *redis.Client
	if cfg.CacheBackend == config.CacheRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rs := cache.NewRedisStore(rdb, cfg.CacheTTL)
		if err := rs.Ping(pingCtx); err != nil {
			db.Close()
			pool.Close()
			rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		opts.Cache = rs
	}

	s, err := New(opts)
	if err != nil {
		db.Close()
		pool.Close()
		if rdb != nil {
			rdb.Close()
		}
		return nil, err
	}
	s.redis = rdb
	return s, nil
}

// New builds the router over already opened connections
func New(opts Options) (*Server, error) {
	cfg := opts.Config
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("jwt configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	qc := opts.Cache
	if qc == nil {
		qc = cache.NewMemoryStore(cfg.CacheTTL)
	}
	rates := opts.Rates
	if rates == nil {
		rates = spend.NewConverter(nil)
	}

	st := store.New(opts.DB, store.WithClock(now))
	s := &Server{
		DB:         opts.DB,
		Pool:       opts.Pool,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    NewMetrics(),
		Store:      st,
		Cache:      qc,
		Resolver:   tenant.NewResolver(st, logger),
		Rates:      rates,
		Notifier:   notify.New(logger),
		Logger:     logger,
		cfg:        cfg,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		now:        now,
	}

	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(s.requestLogger)
	if cfg.MetricsEnabled {
		s.Router.Use(s.Metrics.Middleware())
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Mount public routes FIRST (no auth)
	s.Router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	s.Router.Get("/dbping", s.dbPing)
	s.Router.Post("/auth/login", s.loginUser)
	s.Router.Get("/features", s.listFeatures)
	s.Router.Get("/features/{slug}", s.getFeature)

	// Create a protected route group with middleware
	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		r.Use(s.withScope)

		s.mountProtectedRoutes(r)
	})

	s.Router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, auth.ErrorResponse{Error: "no route for " + r.URL.Path, Code: "NOT_FOUND"})
	})
	s.Router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, auth.ErrorResponse{Error: r.Method + " not allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	return s, nil
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.Logger.Warn("closing redis", zap.Error(err))
		}
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// fanOut returns a group for concurrent store calls. Calls sharing a pinned RLS
// connection run one at a time.
func (s *Server) fanOut(ctx context.Context) (*errgroup.Group, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	if store.Pinned(ctx) {
		g.SetLimit(1)
	}
	return g, ctx
}

func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	if _, err := w.Write([]byte("db: ok")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func adminOnly(h http.HandlerFunc) http.HandlerFunc {
	return auth.MustRole(adminRoles...)(h).(http.HandlerFunc)
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	r.Get("/auth/profile", s.getUserProfile)

	// Helpdesk
	r.Route("/helpdesk", func(r chi.Router) {
		r.Get("/stats", s.helpdeskStats)

		r.Get("/tickets", s.listTickets)
		r.Post("/tickets", s.createTicket)
		r.Get("/tickets/{id}", s.getTicket)
		r.Put("/tickets/{id}", s.updateTicket)
		r.Delete("/tickets/{id}", s.deleteTicket)
		r.Get("/tickets/{id}/detail", s.ticketDetail)
		r.Get("/tickets/{id}/comments", s.listComments)
		r.Post("/tickets/{id}/comments", s.addComment)
		r.Get("/tickets/{id}/history", s.ticketHistory)
		r.Get("/tickets/{id}/attachments", s.ticketAttachments)
		r.Get("/tickets/{id}/problems", s.ticketProblems)
		r.Post("/tickets/{id}/problems", s.linkProblem)

		r.Get("/problems", s.listProblems)
		r.Post("/problems", s.createProblem)
		r.Get("/problems/{id}", s.getProblem)
		r.Put("/problems/{id}", s.updateProblem)
		r.Delete("/problems/{id}", s.deleteProblem)
		r.Get("/problems/{id}/tickets", s.problemTickets)

		// Subscriptions - require org_admin/it_admin for write operations
		r.Route("/subscription", func(r chi.Router) {
			r.Get("/dashboard", s.subscriptionDashboard)

			r.Get("/tools", s.listTools)
			r.Get("/tools/{id}", s.getTool)
			r.Post("/tools", adminOnly(s.createTool))
			r.Put("/tools/{id}", adminOnly(s.updateTool))
			r.Delete("/tools/{id}", adminOnly(s.deleteTool))

			r.Get("/licenses", s.listLicenses)
			r.Get("/licenses/{id}", s.getLicense)
			r.Post("/licenses", adminOnly(s.createLicense))
			r.Put("/licenses/{id}", adminOnly(s.updateLicense))
			r.Delete("/licenses/{id}", adminOnly(s.deleteLicense))

			r.Get("/payments", s.listPayments)
			r.Get("/payments/{id}", s.getPayment)
			r.Post("/payments", adminOnly(s.createPayment))
			r.Put("/payments/{id}", adminOnly(s.updatePayment))
			r.Delete("/payments/{id}", adminOnly(s.deletePayment))

			r.Get("/vendors", s.listVendors)
			r.Get("/vendors/{id}", s.getVendor)
			r.Post("/vendors", adminOnly(s.createVendor))
			r.Put("/vendors/{id}", adminOnly(s.updateVendor))
			r.Delete("/vendors/{id}", adminOnly(s.deleteVendor))
		})
	})

	// ITAM - require org_admin/it_admin for write operations
	r.Route("/itam", func(r chi.Router) {
		r.Get("/stats", s.itamStats)

		r.Get("/assets", s.listAssets)
		r.Get("/assets/{id}", s.getAsset)
		r.Post("/assets", adminOnly(s.createAsset))
		r.Put("/assets/{id}", adminOnly(s.updateAsset))
		r.Delete("/assets/{id}", adminOnly(s.deleteAsset))
		r.Post("/assets/{id}/assign", adminOnly(s.assignAsset))

		r.Get("/assignments", s.listAssignments)
		r.Post("/assignments/{id}/return", adminOnly(s.returnAssignment))

		// Excel import - needs the pgx pool
		if s.Pool != nil {
			importsHandler := handlers.NewImportsHandler(s.Pool, s.cfg.ImportMappingFile, s.Logger)
			r.Post("/imports/excel", adminOnly(s.afterImport(importsHandler.UploadExcel)))
		}
	})
}
