package http

import (
	"net/http"

	"github.com/yungbote/attrition-backend/internal/config"
)

// NewServer wraps the router in an *http.Server. WriteTimeout stays unset so
// large exports are not cut off mid-stream.
func NewServer(cfg config.HTTPConfig, rc RouterConfig) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(rc),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.IdleTimeout.Duration,
		WriteTimeout:      0,
	}
}
