package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)

	m.CartMutation("add")
	m.CartMutation("add")
	m.Submission(OutcomeFallback, 20*time.Millisecond)
	m.Submission(OutcomeEmpty, 0)
	m.LineAttachment(false)
	m.IngestionFailure("html")
	m.Transition("confirm", true)

	assert.InDelta(t, 2, testutil.ToFloat64(m.cartMutations.WithLabelValues("add")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.submissions.WithLabelValues(OutcomeFallback)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.lineAttachments.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ingestionFailures.WithLabelValues("html")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.transitions.WithLabelValues("confirm", "ok")), 0)

	count, err := testutil.GatherAndCount(reg, "tienda_order_submission_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricsReRegisterReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewWithRegisterer(reg)
	second := NewWithRegisterer(reg)

	first.CartMutation("clear")
	second.CartMutation("clear")

	assert.InDelta(t, 2, testutil.ToFloat64(first.cartMutations.WithLabelValues("clear")), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CartMutation("add")
	m.Submission(OutcomeSuccess, time.Second)
	m.LineAttachment(true)
	m.IngestionFailure("empty")
	m.Transition("cancel", false)
}
