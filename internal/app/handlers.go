package app

import (
	"github.com/yungbote/autodoc-backend/internal/config"
	httpH "github.com/yungbote/autodoc-backend/internal/http/handlers"
	"github.com/yungbote/autodoc-backend/internal/modules/proposal/pipeline"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Proposal *httpH.ProposalHandler
}

func wireHandlers(log *logger.Logger, cfg config.Config, p *pipeline.Pipeline, c Clients) Handlers {
	checks := map[string]httpH.ReadinessCheck{
		"media": c.Media.AssertReady,
	}
	if c.Tesseract != nil {
		checks["tesseract"] = c.Tesseract.AssertReady
	}
	return Handlers{
		Health:   httpH.NewHealthHandler(checks),
		Proposal: httpH.NewProposalHandler(log, p, cfg.WorkDir, cfg.HTTP.MaxUploadMB),
	}
}
