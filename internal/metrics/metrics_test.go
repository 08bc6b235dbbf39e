package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)
}

func TestObserveNetworkRequest(t *testing.T) {
	before := testutil.ToFloat64(NetworkRequestTotal.WithLabelValues("reddit", "fetch", "r/test", "error"))
	ObserveNetworkRequest("reddit", "fetch", "r/test", time.Now(), errors.New("boom"))
	after := testutil.ToFloat64(NetworkRequestTotal.WithLabelValues("reddit", "fetch", "r/test", "error"))
	if after-before != 1 {
		t.Errorf("error counter delta = %v, want 1", after-before)
	}

	ObserveNetworkRequest("", "", "", time.Now(), nil)
	if testutil.ToFloat64(NetworkRequestTotal.WithLabelValues("unknown", "unknown", "unknown", "success")) < 1 {
		t.Error("empty labels should be recorded as unknown")
	}
}

func TestObserveLLMGeneration(t *testing.T) {
	ObserveLLMGeneration("test-model", time.Second, 10, 5, 0)
	if got := testutil.ToFloat64(LLMTokensTotal.WithLabelValues("test-model", "total")); got != 15 {
		t.Errorf("total tokens = %v, want 15", got)
	}
}
