package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks returns callbacks writing every event to logger.
func LogHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnChange: func(ctx context.Context, e *domain.ChangeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "operation_rejected",
					"document", e.Document,
					"op", e.Op,
					"err", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, string(e.Type),
				"document", e.Document,
				"op", e.Op,
				"selected", e.Selected,
			)
		},
		OnExpand: func(ctx context.Context, e *domain.ExpandEvent) {
			logger.DebugContext(ctx, "expand",
				"document", e.Document,
				"duration", e.Duration,
				"problems", e.Problems,
			)
		},
		OnOpen: func(ctx context.Context, e *domain.EventBase) {
			logger.InfoContext(ctx, "open", "document", e.Document)
		},
		OnClose: func(ctx context.Context, e *domain.EventBase) {
			logger.InfoContext(ctx, "close", "document", e.Document)
		},
	}
}
