package gce

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	compute "google.golang.org/api/compute/v1"
)

const (
	statusDone = "DONE"

	// The one provider error code this tool interprets.
	codeResourcePoolExhausted = "ZONE_RESOURCE_POOL_EXHAUSTED"
)

// Poller waits for zone operations to reach their terminal state. It is the
// only place provider error codes are interpreted; callers see a typed
// pass/fail result.
type Poller struct {
	api      API
	interval time.Duration
	log      *zap.Logger
}

// NewPoller creates a poller with the standard 1s cadence.
func NewPoller(api API, log *zap.Logger) *Poller {
	return &Poller{api: api, interval: time.Second, log: log}
}

// Await blocks until the operation is DONE and returns its result, or a
// classified error when the operation finished unsuccessfully. There is no
// deadline of its own; cancel or deadline the context to bound the wait.
func (p *Poller) Await(ctx context.Context, zone, opName string) (*compute.Operation, error) {
	p.log.Info("Waiting for operation to finish",
		zap.String("operation", opName),
		zap.String("zone", zone))

	for {
		op, err := p.api.GetZoneOperation(ctx, zone, opName)
		if err != nil {
			return nil, err
		}

		if op.Status == statusDone {
			p.log.Debug("Operation done", zap.String("operation", opName))
			if op.Error != nil && len(op.Error.Errors) > 0 {
				return nil, classify(op.Error.Errors)
			}
			return op, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for operation %s: %w", opName, ctx.Err())
		case <-time.After(p.interval):
		}
	}
}

func classify(errs []*compute.OperationErrorErrors) error {
	if len(errs) == 1 && errs[0].Code == codeResourcePoolExhausted {
		return &ResourceExhaustedError{Message: errs[0].Message}
	}
	return &OperationError{Errors: errs}
}
