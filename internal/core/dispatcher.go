package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"playlistnotify/internal/chat"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Dispatcher sends formatted change notifications to every configured sink.
type Dispatcher struct {
	formatter *Formatter
	sinks     []chat.Sink
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher for the given sinks. metrics may be nil.
func NewDispatcher(formatter *Formatter, sinks []chat.Sink, metrics MetricsRecorder, logger *zap.Logger) *Dispatcher {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Dispatcher{
		formatter: formatter,
		sinks:     sinks,
		metrics:   metrics,
		logger:    logger,
	}
}

// Dispatch formats the change for each sink and sends it. A failing sink does not
// stop delivery to the others; all failures are returned joined.
func (d *Dispatcher) Dispatch(ctx context.Context, track *TrackRecord, user *UserRecord, kind ChangeKind) error {
	var errs []error

	for _, sink := range d.sinks {
		notification := d.formatter.Format(sink.Markup(), track, user, kind)

		if err := sink.Send(ctx, notification); err != nil {
			d.metrics.RecordNotification(sink.Name(), statusError)
			d.logger.Error("Failed to send notification",
				zap.String("sink", sink.Name()),
				zap.String("kind", kind.String()),
				zap.String("trackID", track.ID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}

		d.metrics.RecordNotification(sink.Name(), statusSuccess)
		d.logger.Debug("Notification sent",
			zap.String("sink", sink.Name()),
			zap.String("kind", kind.String()),
			zap.String("trackID", track.ID))
	}

	return errors.Join(errs...)
}
