package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"presentsmart/internal/auth"
	"presentsmart/internal/httpmiddleware"
	"presentsmart/internal/metrics"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	CORSOrigins     []string
	TrustedProxies  []string
	Production      bool
	RateLimitPerMin int
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Log             *zap.Logger
}

// NewRouter builds the gin engine serving the API under /api.
func NewRouter(h *Handler, signer *auth.Signer, opts RouterOptions) *gin.Engine {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	r := gin.New()
	// ClientIP keys the rate limiter; forwarding headers count only from these.
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		opts.Log.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.Logger(opts.Log, "/health", "/api/health", "/metrics"))
	r.Use(opts.Metrics.GinMiddleware())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = opts.CORSOrigins
	corsCfg.AllowCredentials = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	if len(opts.CORSOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))
	r.Use(httpmiddleware.SecurityHeaders(opts.Production))
	if opts.RateLimitPerMin > 0 {
		r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).GinMiddleware())
	}

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/health", h.Health)

	bearer := auth.Bearer(signer)
	teacher := auth.RequireRole(auth.RoleTeacher)
	student := auth.RequireRole(auth.RoleStudent)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Signup)
		authGroup.POST("/signin", h.Signin)
		authGroup.POST("/signout", bearer, h.Signout)
		authGroup.GET("/me", bearer, h.Me)
	}

	att := api.Group("/attendance", bearer)
	{
		att.POST("/generate-code", teacher, h.GenerateCode)
		att.POST("/submit", student, h.Submit)
		att.GET("/history", student, h.History)
		att.GET("/stats", teacher, h.Stats)
	}

	users := api.Group("/users", bearer)
	{
		users.GET("/teacher/profile", teacher, h.TeacherProfile)
		users.GET("/teacher/students", teacher, h.TeacherStudents)
		users.POST("/teacher/invite-student", teacher, h.InviteStudent)
		users.GET("/student/profile", student, h.StudentProfile)
	}

	r.NoRoute(NotFound)
	return r
}
