package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeStats struct {
	blocks  int
	pending int
}

func (f fakeStats) Len() int          { return f.blocks }
func (f fakeStats) PendingCount() int { return f.pending }

func TestMonitor_TrackTicketOperation(t *testing.T) {
	m := NewMonitor(fakeStats{blocks: 4, pending: 2})
	before := testutil.ToFloat64(ticketOperations.WithLabelValues("issue", "ok"))

	m.TrackTicketOperation("issue", "ok")

	assert.Equal(t, before+1, testutil.ToFloat64(ticketOperations.WithLabelValues("issue", "ok")))
	assert.Equal(t, float64(4), testutil.ToFloat64(chainHeight))
	assert.Equal(t, float64(2), testutil.ToFloat64(pendingTransactions))
}

func TestMonitor_TrackBlockSealed(t *testing.T) {
	m := NewMonitor(fakeStats{blocks: 2})
	before := testutil.ToFloat64(blocksSealed)

	m.TrackBlockSealed(25 * time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(blocksSealed))
	assert.Equal(t, float64(2), testutil.ToFloat64(chainHeight))
	assert.Zero(t, testutil.ToFloat64(pendingTransactions))
}

func TestMonitor_TrackChainVerification(t *testing.T) {
	m := NewMonitor(fakeStats{})
	valid := testutil.ToFloat64(chainVerifications.WithLabelValues("valid"))
	invalid := testutil.ToFloat64(chainVerifications.WithLabelValues("invalid"))

	m.TrackChainVerification(true)
	m.TrackChainVerification(false)
	m.TrackChainVerification(false)

	assert.Equal(t, valid+1, testutil.ToFloat64(chainVerifications.WithLabelValues("valid")))
	assert.Equal(t, invalid+2, testutil.ToFloat64(chainVerifications.WithLabelValues("invalid")))
}

func TestMonitor_TrackArchiveOperation(t *testing.T) {
	m := NewMonitor(fakeStats{})
	ok := testutil.ToFloat64(archiveOperations.WithLabelValues("append", "success"))
	failed := testutil.ToFloat64(archiveOperations.WithLabelValues("append", "error"))

	m.TrackArchiveOperation("append", nil)
	m.TrackArchiveOperation("append", errors.New("down"))

	assert.Equal(t, ok+1, testutil.ToFloat64(archiveOperations.WithLabelValues("append", "success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(archiveOperations.WithLabelValues("append", "error")))
}

func TestMonitor_RunStopsOnCancel(t *testing.T) {
	m := NewMonitor(fakeStats{blocks: 7, pending: 3})
	m.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(chainHeight) == 7
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
