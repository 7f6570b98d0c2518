package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gsarma/oneid/internal/crypto"
)

// Options wires the router.
type Options struct {
	OneID  Authenticator
	Sealer *crypto.Sealer
	// StateTTL bounds how long a redirect state stays valid.
	StateTTL time.Duration
	// RoutesEnabled mounts the OneID routes under Prefix; health and metrics
	// are always mounted.
	RoutesEnabled  bool
	Prefix         string
	AllowedOrigins []string
	Log            zerolog.Logger
	Observer       RequestObserver
	Metrics        http.Handler
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(opts.Log, opts.Observer), CORS(opts.AllowedOrigins))
	RegisterRoutes(r, opts)
	return r
}

func RegisterRoutes(r *gin.Engine, opts Options) {
	h := &Handler{
		oneid:    opts.OneID,
		sealer:   opts.Sealer,
		stateTTL: opts.StateTTL,
		now:      time.Now,
	}

	r.GET("/health", h.Health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	if !opts.RoutesEnabled {
		return
	}
	g := r.Group("/" + opts.Prefix)
	{
		g.POST("/handle", h.Handle)
		g.POST("/logout", h.Logout)
		g.GET("/redirect", h.Redirect)
	}
}
