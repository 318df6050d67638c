package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/services"
)

type Handlers struct {
	Health  *HealthHandler
	Ranking *RankingHandler
	User    *UserHandler
	Admin   *AdminHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(logger, services.Health, services.Recommender),
		Ranking: NewRankingHandler(logger, services.Recommender),
		User:    NewUserHandler(logger, services.Recommender),
		Admin:   NewAdminHandler(logger, services.Loader, services.Exporter),
	}
}
