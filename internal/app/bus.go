package app

import (
	"context"

	"github.com/R3E-Network/sira_platform/internal/app/domain/alert"
	"github.com/R3E-Network/sira_platform/internal/app/metrics"
	"github.com/R3E-Network/sira_platform/internal/app/services/eventbus"
)

// instrumentedBus counts alert events in Prometheus before forwarding them.
type instrumentedBus struct {
	next eventbus.Publisher
}

func (b instrumentedBus) Publish(ctx context.Context, key string, data any) error {
	if a, ok := data.(alert.Alert); ok {
		switch key {
		case eventbus.AlertCreated:
			source := "manual"
			if a.RuleID != "" {
				source = "engine"
			}
			metrics.RecordAlertCreated(a.Severity, source)
		case eventbus.AlertSLABreached:
			metrics.RecordSLABreaches(1)
		}
	}
	return b.next.Publish(ctx, key, data)
}
