package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRecordCounts(t *testing.T) {
	c := New()

	c.IncInodesChecked()
	c.IncInodesChecked()
	c.IncRepairsApplied()
	c.IncErrorsFound()
	c.ObserveDuration(time.Now().Add(-50 * time.Millisecond))

	if got := testutil.ToFloat64(c.inodesChecked); got != 2 {
		t.Fatalf("inodes_checked = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.repairsApplied); got != 1 {
		t.Fatalf("repairs_applied = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.errorsFound); got != 1 {
		t.Fatalf("errors_found = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.zonesReconciled); got != 0 {
		t.Fatalf("zones_reconciled = %v, want 0", got)
	}
}

func TestCollectorsAreIndependentPerRun(t *testing.T) {
	a := New()
	b := New()

	a.IncErrorsFound()

	if got := testutil.ToFloat64(a.errorsFound); got != 1 {
		t.Fatalf("a.errorsFound = %v, want 1", got)
	}
	if got := testutil.ToFloat64(b.errorsFound); got != 0 {
		t.Fatalf("b.errorsFound = %v, want 0 (separate registries must not share state)", got)
	}
}
