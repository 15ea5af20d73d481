package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTimeout = 15 * time.Second

// NewRouter собирает HTTP-роутер сервиса: API заказов и health-пробы.
func NewRouter(orders *OrdersHandler, health http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	if health != nil {
		r.Method(http.MethodGet, "/healthz", health)
	}

	r.Route("/api", func(api chi.Router) {
		orders.Register(api)
	})

	return r
}
