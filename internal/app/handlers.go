package app

import (
	httpH "github.com/yungbote/attrition-backend/internal/http/handlers"
	"github.com/yungbote/attrition-backend/internal/prediction/artifact"
	"github.com/yungbote/attrition-backend/internal/services"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Predict  *httpH.PredictHandler
	Employee *httpH.EmployeeHandler
}

func wireHandlers(handle *artifact.Handle, scorer services.Scorer, serviceset Services) Handlers {
	return Handlers{
		Health:   httpH.NewHealthHandler(handle),
		Predict:  httpH.NewPredictHandler(scorer),
		Employee: httpH.NewEmployeeHandler(serviceset.Ingestion, serviceset.Reporting),
	}
}
