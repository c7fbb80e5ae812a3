package http

import (
	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/internal/service"
	"github.com/devninja1/kiosk-app/models"
)

type Handler struct {
	services  *service.ClientServices
	buildInfo models.AppBuildInfo

	logger *logger.Logger
}

func NewHandler(services *service.ClientServices, buildInfo models.AppBuildInfo, logger *logger.Logger) *Handler {
	logger.Info().Msg("local api handler created")
	return &Handler{
		services:  services,
		buildInfo: buildInfo,
		logger:    logger,
	}
}
