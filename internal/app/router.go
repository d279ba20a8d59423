package app

import (
	"net/http"

	"github.com/yungbote/attrition-backend/internal/config"
	httpapi "github.com/yungbote/attrition-backend/internal/http"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

func wireServer(cfg *config.Config, log *logger.Logger, handlers Handlers) *http.Server {
	return httpapi.NewServer(cfg.HTTP, httpapi.RouterConfig{
		Log:             log,
		ServiceName:     cfg.Telemetry.ServiceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		MaxUploadBytes:  cfg.HTTP.MaxUploadBytes,
		HealthHandler:   handlers.Health,
		PredictHandler:  handlers.Predict,
		EmployeeHandler: handlers.Employee,
	})
}
