package retrain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRunnerEmptyCommand(t *testing.T) {
	assert.Nil(t, NewRunner("", "", 0, zap.NewNop()))
}

func TestRunSuccessInDir(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner("echo done > marker", dir, time.Minute, zap.NewNop())

	require.NoError(t, r.Run(context.Background()))
	_, err := os.Stat(filepath.Join(dir, "marker"))
	assert.NoError(t, err)
}

func TestRunFailure(t *testing.T) {
	r := NewRunner("exit 3", t.TempDir(), time.Minute, zap.NewNop())
	assert.Error(t, r.Run(context.Background()))
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner("sleep 5", t.TempDir(), 50*time.Millisecond, zap.NewNop())
	err := r.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
