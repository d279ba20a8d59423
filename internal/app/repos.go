package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/attrition-backend/internal/data/repos"
	"github.com/yungbote/attrition-backend/internal/platform/logger"
)

type Repos struct {
	Employee repos.EmployeeRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Employee: repos.NewEmployeeRepo(db, log),
	}
}
