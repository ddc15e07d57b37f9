package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowOrigins []string
	MaxAge       time.Duration
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{AllowOrigins: []string{"*"}, MaxAge: 12 * time.Hour}
}

func CORS(config CORSConfig) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", HeaderXRequestID},
		ExposeHeaders: []string{"Content-Length", HeaderXRequestID},
		MaxAge:        config.MaxAge,
	}
	if len(config.AllowOrigins) == 0 || (len(config.AllowOrigins) == 1 && config.AllowOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = config.AllowOrigins
	}
	return cors.New(cfg)
}
