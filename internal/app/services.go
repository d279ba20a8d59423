package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/attrition-backend/internal/data/cache"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
	"github.com/yungbote/attrition-backend/internal/services"
)

type Services struct {
	Ingestion services.IngestionService
	Reporting services.ReportingService
}

func wireServices(db *gorm.DB, log *logger.Logger, scorer services.Scorer, reposet Repos, summaryCache cache.SummaryCache) Services {
	log.Info("Wiring services...")
	return Services{
		Ingestion: services.NewIngestionService(db, log, scorer, reposet.Employee, summaryCache),
		Reporting: services.NewReportingService(log, reposet.Employee, summaryCache),
	}
}
