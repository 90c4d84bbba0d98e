// Package router mounts handlers on the gin engine.
package router

import (
	"net/http"

	"github.com/arvi/quotation/internal/interfaces/http/dto"
	"github.com/arvi/quotation/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RootRouteRegistrar is implemented by registrars that also serve unprefixed paths
type RootRouteRegistrar interface {
	RegisterRootRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	prefix     string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithPrefix sets the API path prefix (default "/api")
func WithPrefix(prefix string) RouterOption {
	return func(r *Router) {
		r.prefix = prefix
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		prefix:     "/api",
		registrars: make([]RouteRegistrar, 0),
	}

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

// Setup registers all routes with the engine, and answers unknown
// paths with 404 and known paths with the wrong method with 405.
func (r *Router) Setup() {
	r.engine.HandleMethodNotAllowed = true
	r.engine.NoRoute(notFound)
	r.engine.NoMethod(methodNotAllowed)

	api := r.engine.Group(r.prefix)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
		if root, ok := registrar.(RootRouteRegistrar); ok {
			root.RegisterRootRoutes(&r.engine.RouterGroup)
		}
	}
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, dto.NewErrorResponse(
		dto.ErrorLabel(dto.ErrCodeNotFound, ""), dto.ErrCodeNotFound,
		"No route for "+c.Request.Method+" "+c.Request.URL.Path, middleware.GetRequestID(c)))
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponse(
		dto.ErrorLabel(dto.ErrCodeMethodNotAllowed, ""), dto.ErrCodeMethodNotAllowed,
		c.Request.Method+" is not supported on "+c.Request.URL.Path, middleware.GetRequestID(c)))
}
