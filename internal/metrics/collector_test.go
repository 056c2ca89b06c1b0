package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("fleetassist", reg, nil)

	c.RecordPipelineExecution("maintenance_report", "success", 2*time.Second)
	c.RecordLoopOutcome("schedule_refine", "converged", 3)
	c.RecordLoopOutcome("schedule_refine", "rounds_exhausted", 5)
	c.RecordToolInvocation("vehicle_list", "success", 10*time.Millisecond)
	c.RecordLLMRequest("gemini", "gemini-2.0-flash", "success", time.Second, 100, 50)
	c.RecordCacheHit("recall")
	c.RecordCacheMiss("recall")
	c.RecordCommit(2, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		c.pipelineExecutions.WithLabelValues("maintenance_report", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		c.loopOutcomes.WithLabelValues("schedule_refine", "converged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		c.loopOutcomes.WithLabelValues("schedule_refine", "rounds_exhausted")))
	assert.Equal(t, 100.0, testutil.ToFloat64(
		c.llmTokens.WithLabelValues("gemini", "gemini-2.0-flash", "prompt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.appointmentsBooked))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commitFailures))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// Two collectors on separate registries do not collide.
	a := NewCollector("fleetassist", prometheus.NewRegistry(), nil)
	b := NewCollector("fleetassist", prometheus.NewRegistry(), nil)

	a.RecordCacheHit("recall")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.cacheHits.WithLabelValues("recall")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.cacheHits.WithLabelValues("recall")))
}
