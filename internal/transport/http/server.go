package http

import (
	_ "embed"
	stdhttp "net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-notify/internal/auth"
	"github.com/vovakirdan/wirechat-notify/internal/config"
	"github.com/vovakirdan/wirechat-notify/internal/core"
)

//go:embed index.html
var indexHTML []byte

// NewServer builds the HTTP server: the SSE stream endpoint, its
// WebSocket twin, a health probe, and an embedded demo page.
func NewServer(registry *core.Registry, verifier *auth.Verifier, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:    []string{"*"},
	}))

	router.GET("/", indexHandler)
	router.GET("/health", healthHandler)

	authorized := router.Group("/", AuthMiddleware(verifier, logger))
	authorized.GET("/events", NewSSEHandler(registry, cfg.Heartbeat, logger))

	// The WebSocket upgrade hijacks the connection and needs the raw
	// ResponseWriter, which gin's tracking writer does not allow, so
	// /ws sits on the mux next to the gin router rather than inside it.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(registry, verifier, cfg.Heartbeat, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

func indexHandler(c *gin.Context) {
	c.Data(stdhttp.StatusOK, "text/html; charset=utf-8", indexHTML)
}
