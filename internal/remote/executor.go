package remote

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ExecFailedError means the connectivity probe never succeeded within the
// retry budget. LastErr carries the final probe failure.
type ExecFailedError struct {
	Attempts int
	LastErr  error
}

func (e *ExecFailedError) Error() string {
	return fmt.Sprintf("remote host unreachable after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ExecFailedError) Unwrap() error { return e.LastErr }

// ExecError means the script transfer or execution failed after the host
// was already reachable. These are genuine script or environment failures
// and are never retried.
type ExecError struct {
	Err error
}

func (e *ExecError) Error() string { return fmt.Sprintf("remote execution failed: %v", e.Err) }

func (e *ExecError) Unwrap() error { return e.Err }

// Executor copies a script to a freshly created instance and runs it. The
// only thing it retries is the initial connectivity probe: the injected key
// takes a while to land in the guest's authorized_keys, so early handshakes
// are expected to fail.
type Executor struct {
	transport Transport
	sleep     func(time.Duration)
	log       *zap.Logger
}

func NewExecutor(transport Transport, log *zap.Logger) *Executor {
	return &Executor{transport: transport, sleep: time.Sleep, log: log}
}

// Run probes host up to maxRetry times, waiting retryWait between attempts,
// then uploads the script and executes it through a login shell, returning
// the captured stdout. The login shell matters: without it the guest's login
// agent never grants the service account's access scopes to the session.
func (e *Executor) Run(host, keyPath, scriptPath string, retryWait time.Duration, maxRetry int) (string, error) {
	if host == "" || keyPath == "" {
		return "", errors.New("host and private key must be set before remote execution")
	}
	if scriptPath == "" {
		return "", errors.New("no script given: refusing trivial remote execution")
	}

	e.transport.PurgeKnownHost(host)

	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		if err := e.transport.Probe(host, keyPath); err != nil {
			lastErr = err
			e.log.Debug("Connection probe failed",
				zap.String("host", host),
				zap.Int("attempt", attempt),
				zap.Int("max_retry", maxRetry),
				zap.Error(err))
			if attempt < maxRetry {
				e.sleep(retryWait)
			}
			continue
		}

		e.log.Info("Host reachable", zap.String("host", host), zap.Int("attempt", attempt))

		if err := e.transport.CopyFile(host, scriptPath, keyPath); err != nil {
			return "", &ExecError{Err: fmt.Errorf("copy %s: %w", scriptPath, err)}
		}

		command := fmt.Sprintf("bash -l %s", filepath.Base(scriptPath))
		output, err := e.transport.RunCommand(host, command, keyPath)
		if err != nil {
			return "", &ExecError{Err: err}
		}
		return output, nil
	}

	return "", &ExecFailedError{Attempts: maxRetry, LastErr: lastErr}
}
