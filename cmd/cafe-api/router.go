package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MikeMC777/cozy-cafe/docs"
	"github.com/MikeMC777/cozy-cafe/internal/config"
	"github.com/MikeMC777/cozy-cafe/internal/httpx"
	"github.com/MikeMC777/cozy-cafe/internal/service"
)

const apiVersion = "1.0.0"

type deps struct {
	cfg     config.Config
	log     logrus.FieldLogger
	store   service.Store
	catalog *service.Catalog
	orders  *service.Orders
	started time.Time
}

func newDeps(cfg config.Config, log logrus.FieldLogger, store service.Store) deps {
	return deps{
		cfg:     cfg,
		log:     log,
		store:   store,
		catalog: service.NewCatalog(store, log),
		orders:  service.NewOrders(store, log),
		started: time.Now(),
	}
}

func newRouter(d deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(d.log), httpx.CORS(d.cfg.CORSOrigins))

	staff := httpx.StaffOnly(d.cfg.StaffTokenHash)
	api := r.Group("/api")

	api.GET("/health", healthHandler(d))
	api.GET("/info", infoHandler(r))

	api.GET("/menu", listMenuHandler(d.catalog))
	api.GET("/menu/:id", getMenuItemHandler(d.catalog))
	api.POST("/menu", staff, createMenuItemHandler(d.catalog))
	api.PUT("/menu/:id", staff, updateMenuItemHandler(d.catalog))
	api.DELETE("/menu/:id", staff, deleteMenuItemHandler(d.catalog))
	api.PUT("/menu/:id/stock", staff, updateStockHandler(d.catalog))
	api.POST("/menu/restock", staff, restockHandler(d.catalog))

	api.POST("/orders", createOrderHandler(d.orders))
	api.GET("/orders", staff, listOrdersHandler(d.orders))
	api.GET("/orders/:id", getOrderHandler(d.orders))
	api.PUT("/orders/:id/status", staff, updateOrderStatusHandler(d.orders))
	api.DELETE("/orders/:id", cancelOrderHandler(d.orders))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}

// healthHandler godoc
// @Summary  Liveness and store reachability
// @Tags     meta
// @Produce  json
// @Success  200 {object} map[string]any
// @Failure  503 {object} map[string]any
// @Router   /health [get]
func healthHandler(d deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		body := gin.H{
			"status":      "healthy",
			"uptime":      time.Since(d.started).Seconds(),
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": d.cfg.Env,
			"store":       d.cfg.StoreDriver,
		}
		if err := d.store.Ping(ctx); err != nil {
			d.log.WithError(err).Warn("[health] store ping failed")
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	}
}

// infoHandler godoc
// @Summary  API version and route table
// @Tags     meta
// @Produce  json
// @Success  200 {object} httpx.Envelope
// @Router   /info [get]
func infoHandler(r *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		routes := make([]string, 0, 16)
		for _, ri := range r.Routes() {
			routes = append(routes, ri.Method+" "+ri.Path)
		}
		httpx.OKMessage(c, "Cozy cafe ordering API", gin.H{
			"version":   apiVersion,
			"endpoints": routes,
		})
	}
}
