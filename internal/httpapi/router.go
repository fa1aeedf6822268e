package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"marketstall/internal/api"
	"marketstall/internal/audit"
	"marketstall/internal/auth"
	"marketstall/internal/booking"
	"marketstall/internal/proof"
	"marketstall/internal/stall"
	"marketstall/internal/user"
	"marketstall/pkg/authtoken"
	"marketstall/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Logger *zap.Logger
}

func NewRouter(deps Dependencies) (http.Handler, error) {
	policy, err := booking.ParsePolicy(deps.Cfg.Booking.BlockingStatuses, deps.Cfg.Booking.AllowCancel)
	if err != nil {
		return nil, fmt.Errorf("booking policy: %w", err)
	}
	tokens, err := authtoken.NewIssuer(deps.Cfg.Admin.JWTSecret, deps.Cfg.Admin.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("admin tokens: %w", err)
	}
	proofs, err := proof.NewDiskStore(deps.Cfg.Upload.Dir, deps.Cfg.Upload.PublicPath, deps.Cfg.Upload.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("proof store: %w", err)
	}
	deps.Logger.Info("Booking policy", zap.String("blocking", policy.String()), zap.Bool("allow_cancel", policy.AllowCancel))

	catalog := stall.NewCatalog(stall.NewRepository(deps.DB), deps.Logger)
	bookings := booking.NewService(booking.NewRepository(deps.DB), policy, deps.Logger)
	users := user.NewRepository(deps.DB)

	stallHandlers := stall.Handlers{Catalog: catalog, Logger: deps.Logger}
	bookingHandlers := booking.Handlers{Service: bookings, Stalls: catalog, Logger: deps.Logger}
	proofHandlers := proof.Handlers{Store: proofs, Bookings: bookings, Logger: deps.Logger}
	authHandlers := auth.Handlers{Users: users, Tokens: tokens, Logger: deps.Logger}
	dash := dashboard{
		bookings: bookings,
		stalls:   catalog,
		users:    users,
		audit:    audit.NewRepository(deps.DB),
		logger:   deps.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestLogger(deps.Logger))
	r.Use(api.CORSMiddleware(api.CORSOptions{
		AllowedOrigins: deps.Cfg.AllowedOrigins,
		MaxAgeSeconds:  600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Uploaded payment proofs, read-only.
	r.Handle(proofs.PublicPath()+"/*", proofs.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandlers.Login)

		// Vendor-facing, no login.
		r.Get("/stalls", bookingHandlers.ListStalls)
		r.Get("/stalls/{id}", bookingHandlers.GetStall)
		r.Get("/stalls/{id}/availability", bookingHandlers.Availability)
		r.Get("/stalls/{id}/price", bookingHandlers.Price)
		r.Post("/bookings", bookingHandlers.Create)
		r.Get("/bookings/{id}", bookingHandlers.Get)
		r.Post("/bookings/{id}/payment-proof", proofHandlers.Upload)

		r.Route("/admin", func(r chi.Router) {
			r.Use(api.AdminAuth(tokens))

			r.Get("/dashboard", dash.Show)
			r.Get("/users", dash.Users)

			r.Get("/bookings", bookingHandlers.List)
			r.Get("/bookings/{id}/events", bookingHandlers.Events)
			r.Post("/bookings/{id}/transitions", bookingHandlers.Transition)

			r.Get("/stalls", stallHandlers.List)
			r.Post("/stalls", stallHandlers.Create)
			r.Put("/stalls/{id}", stallHandlers.Update)
			r.Delete("/stalls/{id}", stallHandlers.Delete)
		})
	})

	return r, nil
}
