package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/marketplace/internal/api/middleware"
	"github.com/example/marketplace/internal/auth"
)

// NewRouter wires the REST surface. Checkout and the public order lookup are
// unauthenticated; invoice and cancel require store ownership (checked per
// order in the handler), resolve requires the admin claim.
func NewRouter(handlers *Handlers, jwtService *auth.JWTService, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)

	r.Post("/checkout", handlers.Checkout)
	r.Get("/orders/{id}", handlers.GetOrder)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(jwtService))

		r.Get("/stores/{storeSlug}/orders", handlers.ListStoreOrders)
		r.Patch("/orders/{id}/invoice", handlers.AttachInvoice)
		r.Patch("/orders/{id}/cancel", handlers.CancelOrder)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Patch("/orders/{id}/resolve", handlers.ResolveOrder)
		})
	})

	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())))
		})
	}
}
