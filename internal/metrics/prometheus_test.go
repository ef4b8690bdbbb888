package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Every claim path must balance against RecordCheck, or the claimed gauge
// drifts.
func TestClaimedGaugeBalance(t *testing.T) {
	base := testutil.ToFloat64(MonitorsClaimed)

	RecordClaim()
	if got := testutil.ToFloat64(MonitorsClaimed); got != base+1 {
		t.Fatalf("gauge after single claim = %v, want %v", got, base+1)
	}

	RecordCheck(false, 10*time.Millisecond)
	if got := testutil.ToFloat64(MonitorsClaimed); got != base {
		t.Fatalf("gauge after closing single claim = %v, want %v", got, base)
	}

	RecordClaimBatch(3)
	if got := testutil.ToFloat64(MonitorsClaimed); got != base+3 {
		t.Fatalf("gauge after batch claim = %v, want %v", got, base+3)
	}

	for i := 0; i < 3; i++ {
		RecordCheck(true, 0)
	}
	if got := testutil.ToFloat64(MonitorsClaimed); got != base {
		t.Fatalf("gauge after closing batch = %v, want %v", got, base)
	}
}
