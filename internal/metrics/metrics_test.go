package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New(prometheus.NewRegistry())
	require.NotNil(t, m)
	assert.NotNil(t, m.UpdatesTotal)
	assert.NotNil(t, m.UpdateDuration)
	assert.NotNil(t, m.FlowsTotal)
	assert.NotNil(t, m.CallbacksTotal)
	assert.NotNil(t, m.ActiveConversations)
	assert.NotNil(t, m.PhotosStoredTotal)
}

func TestSessionLifecycle(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionStarted("add_item")
	m.SessionStarted("register")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActiveConversations))

	m.SessionEnded("add_item", "completed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConversations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowsTotal.WithLabelValues("add_item", "completed")))
}

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordUpdate("message", OutcomeHandled, 20*time.Millisecond)
	m.RecordUpdate("message", OutcomeHandled, time.Millisecond)
	m.RecordCallback("add")
	m.RecordPhoto(nil)
	m.RecordPhoto(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpdatesTotal.WithLabelValues("message", OutcomeHandled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallbacksTotal.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhotosStoredTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhotosStoredTotal.WithLabelValues("error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpdate("message", OutcomeIgnored, 0)
		m.RecordCallback("add")
		m.RecordPhoto(nil)
		m.SessionStarted("x")
		m.SessionEnded("x", "completed")
	})
}
