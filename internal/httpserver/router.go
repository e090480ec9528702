package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tienda-b2b/internal/logging"
	cartsvc "tienda-b2b/internal/service/cart"
	ordersvc "tienda-b2b/internal/service/order"
)

// Deps are the services the routes need.
type Deps struct {
	Sessions       *cartsvc.Sessions
	Submitter      *ordersvc.Submitter
	Lifecycle      *ordersvc.Lifecycle
	Metrics        http.Handler
	AllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Entry, db Pinger, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Submitter == nil || deps.Lifecycle == nil {
		return nil, errors.New("httpserver: sessions, submitter and lifecycle are required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.WriterLevel(log.DebugLevel)), gin.Recovery())
	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  deps.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowHeaders:  []string{"Origin", "Content-Type", sessionHeader},
			ExposeHeaders: []string{sessionHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	h := &handlers{deps: deps, logger: logger}

	cart := router.Group("/cart", sessionMiddleware(deps.Sessions))
	cart.GET("", h.getCart)
	cart.DELETE("", h.clearCart)
	cart.POST("/items", h.addItem)
	cart.PATCH("/items/:lineId", h.updateItem)
	cart.DELETE("/items/:lineId", h.removeItem)

	router.POST("/checkout", sessionMiddleware(deps.Sessions), h.checkout)

	orders := router.Group("/orders")
	orders.GET("", h.listOrders)
	orders.GET("/:id", h.getOrder)
	orders.POST("/:id/confirm", h.confirmOrder)
	orders.POST("/:id/cancel", h.cancelOrder)
	orders.POST("/:id/status", h.advanceOrder)

	return router, nil
}
