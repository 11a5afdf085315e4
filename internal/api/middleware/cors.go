package middleware

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/tracing"
)

// DefaultCORSConfig opens the API to any origin. Nothing is sent with
// credentials, and the preview headers are exposed to the shell.
func DefaultCORSConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = []string{"*"}
	cfg.AddAllowHeaders("Accept", "Cache-Control", "If-None-Match", "X-Requested-With",
		tracing.HeaderTraceID, tracing.HeaderSpanID)
	cfg.AddExposeHeaders("ETag", "Content-Disposition", tracing.HeaderTraceID)
	return cfg
}

// CORS applies cfg. An empty origin list or one containing "*" allows
// every origin.
func CORS(cfg cors.Config) gin.HandlerFunc {
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
