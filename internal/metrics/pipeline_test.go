package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStage(t *testing.T) {
	before := testutil.ToFloat64(StageMessagesTotal.WithLabelValues("router", OutcomeOK))
	ObserveStage("router", OutcomeOK, time.Now().Add(-10*time.Millisecond))

	after := testutil.ToFloat64(StageMessagesTotal.WithLabelValues("router", OutcomeOK))
	if after != before+1 {
		t.Errorf("stage_messages_total = %f, want %f", after, before+1)
	}
	if testutil.CollectAndCount(StageDuration) == 0 {
		t.Error("expected stage_duration_seconds observations")
	}
}

func TestObserveRemote(t *testing.T) {
	ObserveRemote("sparql", "select", "200", time.Now())
	ObserveRemote("sparql", "select", "error", time.Now())

	if v := testutil.ToFloat64(RemoteCallsTotal.WithLabelValues("sparql", "select", "error")); v < 1 {
		t.Errorf("expected error call to be counted, got %f", v)
	}
}

func TestRegisterPipelineMetrics_Idempotent(t *testing.T) {
	RegisterPipelineMetrics()
	RegisterPipelineMetrics()
}
