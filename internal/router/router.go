package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/meridianlabs/site-api/internal/handler"
	authhandler "github.com/meridianlabs/site-api/internal/handler/auth"
	contacthandler "github.com/meridianlabs/site-api/internal/handler/contact"
	healthhandler "github.com/meridianlabs/site-api/internal/handler/health"
	promhandler "github.com/meridianlabs/site-api/internal/handler/prometheus"
	"github.com/meridianlabs/site-api/internal/middleware"
)

type RouterConfig struct {
	RateLimit        rate.Limit
	RateBurst        int
	RateLimitEnabled bool
	CORSConfig       middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	contactH *contacthandler.Handler
	authH    *authhandler.Handler
	healthH  *healthhandler.Handler
	promH    *promhandler.Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	contactH *contacthandler.Handler,
	authH *authhandler.Handler,
	healthH *healthhandler.Handler,
	promH *promhandler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		contactH: contactH,
		authH:    authH,
		healthH:  healthH,
		promH:    promH,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		promH.Middleware(),
		middleware.Timeout(30*time.Second),
		middleware.SecurityHeaders(),
		middleware.SizeLimit(1<<20),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	// A wrong verb on a known route answers 405, not 404.
	engine.HandleMethodNotAllowed = true
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, handler.NewErrorResponse("method not allowed"))
	})

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", r.promH.Handler())

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)
	r.authH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.contactH.RegisterRoutes(api, protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
