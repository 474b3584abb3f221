package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestServiceRequestsLabels(t *testing.T) {
	before := testutil.ToFloat64(ServiceRequests.WithLabelValues("embedding", "success"))
	ServiceRequests.WithLabelValues("embedding", Outcome(nil)).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(ServiceRequests.WithLabelValues("embedding", "success")))
}
