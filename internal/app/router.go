package app

import (
	"github.com/yungbote/autodoc-backend/internal/config"
	httpx "github.com/yungbote/autodoc-backend/internal/http"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg config.Config, h Handlers) httpx.RouterConfig {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpx.RouterConfig{
		Log:             log,
		ServiceName:     serviceName,
		AllowedOrigins:  cfg.AllowedOrigins(),
		HealthHandler:   h.Health,
		ProposalHandler: h.Proposal,
	}
}
