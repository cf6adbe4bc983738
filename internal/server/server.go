package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/aquagest/apiserver/config"
	"github.com/aquagest/apiserver/internal/db"
	"github.com/aquagest/apiserver/internal/handlers"
	"github.com/aquagest/apiserver/internal/metrics"
	"github.com/aquagest/apiserver/internal/mq"
	"github.com/aquagest/apiserver/internal/notify"
	"github.com/aquagest/apiserver/internal/services"
	"github.com/aquagest/apiserver/internal/session"
	"github.com/aquagest/apiserver/internal/storage"
	"github.com/aquagest/apiserver/internal/store"
	"github.com/aquagest/apiserver/internal/store/memory"
	"github.com/aquagest/apiserver/types"
)

// Deps are the collaborators a Server is assembled from.
type Deps struct {
	Repos   services.Repositories
	DB      handlers.Pinger
	Broker  *mq.MQ
	Archive services.Archive
	Metrics *metrics.Metrics

	// Closers run on Shutdown in order.
	Closers []func() error
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	hub        *notify.Hub
	closers    []func() error
}

// New connects the storage, broker and archive selected by cfg and builds
// a Server on top of them.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	deps := Deps{Metrics: metrics.New()}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		mem := memory.NewStore()
		deps.Repos = MemoryRepositories(mem)
		deps.DB = mem
		seeder := services.NewSupplyPointService(deps.Repos.SupplyPoints, deps.Repos.Availability, nil)
		if _, err := seeder.Seed(ctx, services.DefaultSeedPoints); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
	case config.DriverPostgres, "":
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Repos = PostgresRepositories(dbConn)
		deps.DB = sqlPinger{db: dbConn}
		deps.Closers = append(deps.Closers, dbConn.Close)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		closeAll(deps.Closers)
		return nil, err
	}
	if broker != nil {
		deps.Broker = broker
		deps.Closers = append(deps.Closers, broker.Close)
	}

	archive, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		closeAll(deps.Closers)
		return nil, err
	}
	if archive != nil {
		deps.Archive = archive
		deps.Closers = append(deps.Closers, archive.Close)
	}

	return NewWithDeps(cfg, deps), nil
}

// NewWithDeps builds the router and HTTP server from already constructed
// collaborators.
func NewWithDeps(cfg config.Config, deps Deps) *Server {
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	hub := notify.NewHub(
		notify.WithLogger(log.Logger),
		notify.WithFailureHook(func(event types.Event, _ error) {
			m.IncListenerFailure(string(event.Type))
		}),
	)
	hub.Subscribe(notify.LogListener(log.Logger))
	hub.Subscribe(notify.MetricsListener(m))
	if deps.Broker != nil {
		hub.Subscribe(notify.BrokerListener(deps.Broker))
	}

	gate := session.NewGate(deps.Repos.Users, hub)

	userService := services.NewUserService(deps.Repos.Users, gate, hub)
	requestService := services.NewRequestService(deps.Repos.Requests, deps.Repos.SupplyPoints, gate, hub)
	pointService := services.NewSupplyPointService(deps.Repos.SupplyPoints, deps.Repos.Availability, gate)
	inquiryService := services.NewInquiryService(deps.Repos.Inquiries, gate)
	dashboardService := services.NewDashboardService(deps.Repos, m)
	reportService := services.NewReportService(deps.Repos, hub, deps.Archive, m)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz)
	router.Get("/test-db", handlers.TestDB(deps.DB, dashboardService))
	router.Handle("/metrics", m.Handler())
	router.Route("/usuarios", func(r chi.Router) {
		handlers.UserRouter(r, userService)
	})
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService)
	})
	router.Route("/solicitudes", func(r chi.Router) {
		handlers.RequestRouter(r, requestService)
	})
	router.Route("/puntos-suministro", func(r chi.Router) {
		handlers.SupplyPointRouter(r, pointService)
	})
	router.Route("/consultas", func(r chi.Router) {
		handlers.InquiryRouter(r, inquiryService)
	})
	router.Route("/dashboard", func(r chi.Router) {
		handlers.DashboardRouter(r, dashboardService)
	})
	router.Route("/reportes", func(r chi.Router) {
		handlers.ReportRouter(r, reportService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		hub:        hub,
		closers:    deps.Closers,
	}
}

// MemoryRepositories exposes an in-memory store through the repository set.
func MemoryRepositories(mem *memory.Store) services.Repositories {
	return services.Repositories{
		Users:        mem.Users(),
		Requests:     mem.Requests(),
		SupplyPoints: mem.SupplyPoints(),
		Availability: mem.Availability(),
		Inquiries:    mem.Inquiries(),
	}
}

// PostgresRepositories builds the SQL-backed repository set.
func PostgresRepositories(dbConn *sql.DB) services.Repositories {
	return services.Repositories{
		Users:        store.NewUserRepository(dbConn),
		Requests:     store.NewRequestRepository(dbConn),
		SupplyPoints: store.NewSupplyPointRepository(dbConn),
		Availability: store.NewAvailabilityRepository(dbConn),
		Inquiries:    store.NewInquiryRepository(dbConn),
	}
}

type sqlPinger struct {
	db *sql.DB
}

func (p sqlPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub exposes the notification hub so callers can attach extra listeners.
func (s *Server) Hub() *notify.Hub {
	return s.hub
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("starting http server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database, the
// broker and the report archive.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if cerr := closeAll(s.closers); err == nil {
		err = cerr
	}
	return err
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
