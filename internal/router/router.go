package router

import (
	"database/sql"
	"net/http"

	"furrchum-vet/internal/adapters/auth/localjwt"
	mem "furrchum-vet/internal/adapters/storage/memory"
	pg "furrchum-vet/internal/adapters/storage/postgres"
	rds "furrchum-vet/internal/adapters/storage/redis"
	"furrchum-vet/internal/domain/accounts"
	"furrchum-vet/internal/domain/bookings"
	"furrchum-vet/internal/domain/dashboard"
	"furrchum-vet/internal/domain/notifications"
	"furrchum-vet/internal/domain/pets"
	"furrchum-vet/internal/domain/providers"
	"furrchum-vet/internal/domain/records"
	"furrchum-vet/internal/middleware"
	"furrchum-vet/internal/platform/config"
	"furrchum-vet/internal/platform/logger"
	"furrchum-vet/internal/platform/metrics"
	"furrchum-vet/internal/ports/auth"
	"furrchum-vet/internal/ports/capabilities"
	"furrchum-vet/internal/ports/idempotency"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev: X-Debug-User-ID)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
	// Opcional: si viene, las Idempotency-Key se guardan en Redis.
	Redis *goredis.Client

	Logger       logger.Logger
	Config       config.Config
	Capabilities capabilities.CapabilitiesResolver
	// Si es nil no se montan /auth/sign-up ni /auth/sign-in.
	Tokens  *localjwt.Tokens
	Metrics *metrics.Metrics
}

type repos struct {
	pets          pets.Repository
	records       records.Repository
	bookings      bookings.Repository
	notifications notifications.Repository
	users         accounts.Repository
}

func newRepos(db *sql.DB) repos {
	if db != nil {
		return repos{
			pets:          pg.NewPetsRepo(db),
			records:       pg.NewRecordsRepo(db),
			bookings:      pg.NewBookingsRepo(db),
			notifications: pg.NewNotificationsRepo(db),
			users:         pg.NewUsersRepo(db),
		}
	}
	return repos{
		pets:          mem.NewPetRepo(),
		records:       mem.NewRecordRepo(),
		bookings:      mem.NewBookingRepo(),
		notifications: mem.NewNotificationRepo(),
		users:         mem.NewUserRepo(),
	}
}

// NewRouter arma el servicio completo. Falla solo si la config del
// directorio de veterinarios o de las salas de video es inválida.
func NewRouter(opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	cfg := opts.Config
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))
	r.Use(middleware.RequestLog(log))
	r.Use(m.Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, log))

	var store idempotency.Store
	if opts.Redis != nil {
		store = rds.NewIdempotencyStore(opts.Redis)
	} else {
		store = mem.NewIdempotencyStore()
	}
	r.Use(middleware.Idempotency(store, cfg.IdempotencyTTL, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	rp := newRepos(opts.DB)
	loc := cfg.Location()

	// Services por módulo
	petsSvc := pets.NewService(rp.pets)
	recordsSvc := records.NewService(rp.records)
	notificationsSvc := notifications.NewService(rp.notifications)

	dir, err := providers.NewDirectory(providers.Options{
		Vets:        providers.DefaultVets(),
		DefaultID:   cfg.DefaultProviderID,
		HorizonDays: cfg.BookingHorizonDays,
		Location:    loc,
	})
	if err != nil {
		return nil, err
	}
	rooms, err := bookings.NewURLRoomIssuer(cfg.RoomBaseURL)
	if err != nil {
		return nil, err
	}

	mgr := bookings.NewManager(bookings.Deps{
		Repo:      rp.bookings,
		Pets:      petsSvc,
		Providers: dir,
		Rooms:     rooms,
		Sessions:  middleware.Sessions{},
		Log:       log.With(map[string]any{"component": "bookings"}),
		Location:  loc,
	})
	bookingOpts := bookings.HandlerOptions{
		Capabilities: opts.Capabilities,
		Notifier:     notificationsSvc,
		Observe:      m.ObserveBooking,
		Log:          log,
	}

	// Rutas por módulo
	pets.RegisterRoutes(r, petsSvc)
	records.RegisterRoutes(r, recordsSvc, petsSvc)
	providers.RegisterRoutes(r, dir)
	bookings.RegisterRoutes(r, mgr, bookingOpts)
	notifications.RegisterRoutes(r, notificationsSvc)
	dashboard.RegisterRoutes(r, dashboard.Deps{
		Bookings: mgr,
		Pets:     petsSvc,
		Records:  recordsSvc,
	})

	if opts.Tokens != nil {
		accounts.RegisterRoutes(r, accounts.NewService(rp.users, opts.Tokens))
	}

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(middleware.RequireAdminKey(cfg.AdminAPIKey))
		bookings.RegisterAdminRoutes(ar, mgr, bookingOpts)
	})

	return r, nil
}
