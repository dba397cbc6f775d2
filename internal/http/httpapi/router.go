package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/http/handlers"
	"github.com/Miquel-TA/cat-feeder/internal/middleware"
)

// Options carry the cross-cutting settings of the router.
type Options struct {
	AllowedOrigins     []string
	DefaultLocale      string
	CountryLookup      middleware.CountryLookup
	OperatorSecret     string
	RateLimitPerMinute int
	Logger             zerolog.Logger
}

// NewRouter mounts the operator API and the overlay websocket hubs.
func NewRouter(app *handlers.App, donationHub, sleepHub http.Handler, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/health", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sleep", app.SleepStatus)
		r.Get("/donations", app.DonationsList)
		r.Get("/queue", app.QueueStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.OperatorAuth(opts.OperatorSecret))
			r.Post("/sleep/override", app.SleepOverride)
			r.With(middleware.RateLimit(opts.RateLimitPerMinute, time.Minute)).
				Post("/donations", app.DonationsCreate)
		})
	})

	r.Handle("/ws/donations", donationHub)
	r.Handle("/ws/sleep", sleepHub)

	return r
}
