package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/attrition-backend/internal/http/handlers"
	httpMW "github.com/yungbote/attrition-backend/internal/http/middleware"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	MaxUploadBytes int64

	HealthHandler   *httpH.HealthHandler
	PredictHandler  *httpH.PredictHandler
	EmployeeHandler *httpH.EmployeeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.MaxUploadBytes > 0 {
		r.Use(httpMW.LimitBody(cfg.MaxUploadBytes))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	{
		if cfg.HealthHandler != nil {
			api.GET("/model", cfg.HealthHandler.Model)
		}

		// Scoring without persistence
		if cfg.PredictHandler != nil {
			api.POST("/predict", cfg.PredictHandler.Predict)
			api.POST("/predict/batch", cfg.PredictHandler.PredictBatch)
		}

		// Intake
		if cfg.EmployeeHandler != nil {
			api.POST("/feedback", cfg.EmployeeHandler.SubmitFeedback)
			api.POST("/uploads/csv", cfg.EmployeeHandler.UploadCSV)

			api.GET("/employees", cfg.EmployeeHandler.List)
			api.GET("/employees/export", cfg.EmployeeHandler.Export)
			api.GET("/employees/:employee_id", cfg.EmployeeHandler.Get)
			api.GET("/reports/summary", cfg.EmployeeHandler.Summary)
		}
	}

	return r
}
