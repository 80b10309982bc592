// Package notify delivers export job state-change events to external sinks.
// Delivery is best-effort: the export service logs and discards sink errors,
// so an unreachable sink never affects a job's own transition.
package notify

import (
	"context"

	"github.com/haln/taskboard/internal/domain"
)

// Notifier is a sink for export job state-change events. Notify is invoked
// once per transition with a snapshot of the job after the transition.
type Notifier interface {
	Notify(ctx context.Context, status domain.ExportStatus, job *domain.ExportJob, extra map[string]interface{}) error
}

// NoopNotifier discards all events. Used when no sink is configured.
type NoopNotifier struct{}

// NewNoopNotifier creates a NoopNotifier.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// Notify discards the event.
func (NoopNotifier) Notify(context.Context, domain.ExportStatus, *domain.ExportJob, map[string]interface{}) error {
	return nil
}
