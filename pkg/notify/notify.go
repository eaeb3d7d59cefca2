package notify

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
)

// Kind is the visual style of a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
	KindError   Kind = "error"
)

// DisplayOptions is purely presentational.
type DisplayOptions struct {
	Duration  time.Duration
	Offset    int
	ShowClose bool
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, message string, opts DisplayOptions)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, kind Kind, message string, opts DisplayOptions)

func (f Func) Notify(ctx context.Context, kind Kind, message string, opts DisplayOptions) {
	f(ctx, kind, message, opts)
}

// LogNotifier renders notifications as structured log lines, for headless hosts.
type LogNotifier struct {
	logg *logger.Logger
}

func NewLogNotifier(logg *logger.Logger) *LogNotifier {
	return &LogNotifier{logg: logg}
}

func (n *LogNotifier) Notify(ctx context.Context, kind Kind, message string, opts DisplayOptions) {
	if n == nil || n.logg == nil {
		return
	}
	ctx = n.logg.WithFields(ctx, map[string]any{
		"notification": string(kind),
		"duration_ms":  opts.Duration.Milliseconds(),
		"offset":       opts.Offset,
	})
	switch kind {
	case KindWarning:
		n.logg.Warn(ctx, message)
	case KindError:
		n.logg.Error(ctx, message, nil)
	default:
		n.logg.Info(ctx, message)
	}
}
