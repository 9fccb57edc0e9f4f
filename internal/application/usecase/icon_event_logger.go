package usecase

import (
	"context"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/domain/entity"
	"github.com/bnema/touchicons/internal/logging"
)

// iconEventLogger writes icon cache events to the logger carried by ctx.
type iconEventLogger struct {
	ctx context.Context
}

// NewIconEventLogger returns an observer logging every icon cache event.
func NewIconEventLogger(ctx context.Context) port.IconObserver {
	return &iconEventLogger{ctx: logging.WithComponent(ctx, "icon-events")}
}

func (l *iconEventLogger) OnIconStored(record *entity.IconRecord, file string) {
	if record == nil {
		return
	}
	logging.FromContext(l.ctx).Info().
		Str("origin", record.Origin).
		Str("type", record.IconType.String()).
		Int("size", record.IconSize).
		Str("file", file).
		Msg("icon stored")
}

func (l *iconEventLogger) OnIconEvicted(origin, file string) {
	logging.FromContext(l.ctx).Info().
		Str("origin", origin).
		Str("file", file).
		Msg("icon evicted")
}

func (l *iconEventLogger) OnIconLoadComplete(origin string, success bool) {
	logging.FromContext(l.ctx).Debug().
		Str("origin", origin).
		Bool("success", success).
		Msg("icon load complete")
}
