package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWithoutDSNIsDisabled(t *testing.T) {
	require.NoError(t, Initialize(Config{}))
	assert.False(t, Enabled())
	assert.True(t, Flush(time.Millisecond))
}

func TestInitializeRejectsBadDSN(t *testing.T) {
	assert.Error(t, Initialize(Config{DSN: "::not a dsn"}))
}

func TestCaptureWhenDisabledIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		CaptureError(context.Background(), errors.New("boom"), 1)
		CaptureError(context.Background(), nil, 1)
		CapturePanic(context.Background(), "oops", 1)
		CapturePanic(context.Background(), nil, 1)
	})
}
