// Package sender provides interfaces and implementations for publishing
// device metrics.
package sender

import (
	"context"
	"errors"

	"devicemonitor/internal/collector"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("sender is closed")

// Sender defines the interface for sending collected metrics.
type Sender interface {
	// Send transmits the metric data to the destination.
	Send(ctx context.Context, data *collector.MetricData) error

	// SendBatch transmits multiple metric data items.
	SendBatch(ctx context.Context, data []*collector.MetricData) error

	// Close releases any resources held by the sender.
	Close() error
}

func sendEach(ctx context.Context, s Sender, data []*collector.MetricData) error {
	for _, d := range data {
		if err := s.Send(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
