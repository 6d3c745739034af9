// Package router assembles the gin engine: middleware chain, /health and the
// versioned API groups.
package router

import (
	"net/http"
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/infrastructure/logger"
	"github.com/erp/orderledger/internal/interfaces/http/dto"
	"github.com/erp/orderledger/internal/interfaces/http/handler"
	"github.com/erp/orderledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes under /api/{version}
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// DomainGroup collects the routes of one resource before registration
type DomainGroup struct {
	name       string
	prefix     string
	routes     []routeDefinition
	subgroups  []*DomainGroup
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

func (dg *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// GET registers a GET route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, handlers)
}

// POST registers a POST route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, handlers)
}

// PUT registers a PUT route
func (dg *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, handlers)
}

// PATCH registers a PATCH route
func (dg *DomainGroup) PATCH(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPatch, path, handlers)
}

// DELETE registers a DELETE route
func (dg *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, handlers)
}

// Group creates a sub-group within this domain
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	subgroup := NewDomainGroup(name, prefix)
	dg.subgroups = append(dg.subgroups, subgroup)
	return subgroup
}

// RegisterRoutes implements RouteRegistrar interface
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}
	for _, route := range dg.routes {
		group.Handle(route.method, route.path, route.handlers...)
	}
	for _, subgroup := range dg.subgroups {
		subgroup.RegisterRoutes(group)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}

// Handlers are the endpoint handlers served by the engine
type Handlers struct {
	Orders     *handler.OrderHandler
	OrderItems *handler.OrderItemHandler
	Products   *handler.ProductHandler
	Bundles    *handler.BundleHandler
	Health     *handler.HealthHandler
}

// Options configure the middleware chain
type Options struct {
	Logger *zap.Logger
	// Idempotency guards order creation when set
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Tracing        middleware.TracingConfig
	MaxBodyBytes   int64
}

// NewEngine builds the gin engine with the full middleware chain and every
// route of the API.
func NewEngine(h Handlers, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Warn("Custom validators not registered", zap.Error(err))
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodyBytes
	}

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Secure(),
		middleware.Tracing(opts.Tracing),
		logger.GinMiddleware(log),
		middleware.Actor(),
		middleware.SpanAttributes(),
		middleware.BodyLimit(maxBody),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(shared.CodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.Health.Check)

	createOrder := []gin.HandlerFunc{h.Orders.Create}
	if opts.Idempotency != nil {
		createOrder = append([]gin.HandlerFunc{middleware.Idempotency(opts.Idempotency, opts.IdempotencyTTL, log)}, createOrder...)
	}

	orders := NewDomainGroup("orders", "/orders").
		POST("", createOrder...).
		GET("", h.Orders.List).
		GET("/:id", h.Orders.Get).
		PUT("/:id", h.Orders.Update).
		DELETE("/:id", h.Orders.Delete).
		POST("/:id/cancel", h.Orders.Cancel).
		POST("/:id/request-cancel", h.Orders.RequestCancel)

	items := NewDomainGroup("order-items", "/order-items").
		PATCH("/:id", h.OrderItems.Update).
		DELETE("/:id", h.OrderItems.Delete).
		POST("/:id/cancel", h.OrderItems.Cancel).
		POST("/:id/request-cancel", h.OrderItems.RequestCancel).
		POST("/:id/reject-cancel", h.OrderItems.RejectCancel)

	products := NewDomainGroup("products", "/products").
		POST("", h.Products.Create).
		GET("/:id", h.Products.Get).
		POST("/:id/stock", h.Products.AdjustStock).
		PUT("/:id/selling-price", h.Products.ChangeSellingPrice)

	bundles := NewDomainGroup("bundles", "/bundles").
		POST("", h.Bundles.Create).
		GET("/:id", h.Bundles.Get).
		PUT("/:id", h.Bundles.Update).
		DELETE("/:id", h.Bundles.Delete)

	NewRouter(engine).
		Register(orders).
		Register(items).
		Register(products).
		Register(bundles).
		Setup()

	return engine
}
