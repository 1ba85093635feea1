// Package retrain invokes the external training pipeline.
package retrain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

const maxOutput = 4096

// Runner runs a shell command that retrains and re-exports the model.
// The freshness caches pick up the new artifacts on their own.
type Runner struct {
	command string
	dir     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner returns nil when command is empty.
func NewRunner(command, dir string, timeout time.Duration, logger *zap.Logger) *Runner {
	if command == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Runner{command: command, dir: dir, timeout: timeout, logger: logger}
}

// Run executes the command and waits for it.
func (r *Runner) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	cmd.Dir = r.dir
	// Children of the shell may hold the output pipe open after a kill.
	cmd.WaitDelay = 5 * time.Second
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	r.logger.Info("retraining started", zap.String("command", r.command))

	if err := cmd.Run(); err != nil {
		r.logger.Error("retraining failed",
			zap.Error(err),
			zap.String("output", tail(out.Bytes())),
			zap.Duration("took", time.Since(start)))
		if ctx.Err() != nil {
			return fmt.Errorf("retrain: %w", ctx.Err())
		}
		return fmt.Errorf("retrain: %w", err)
	}

	r.logger.Info("retraining finished", zap.Duration("took", time.Since(start)))
	return nil
}

func tail(b []byte) string {
	if len(b) > maxOutput {
		b = b[len(b)-maxOutput:]
	}
	return string(b)
}
