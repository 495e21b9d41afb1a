package journal_test

import (
	"sync"
	"testing"
	"time"

	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/stretchr/testify/assert"
)

func TestCountersAccumulate(t *testing.T) {
	j := journal.New()
	j.RecordDocsPushed("a", 3)
	j.RecordDocsPushed("b", 2)
	j.RecordDocServed()
	j.RecordDocServed()
	j.RecordFeedSent()
	j.RecordFeedFailed()
	j.RecordAuthzCheck()

	snap := j.Snapshot()
	assert.Equal(t, int64(5), snap.DocsPushed)
	assert.Equal(t, int64(2), snap.DocsServed)
	assert.Equal(t, int64(1), snap.FeedsSent)
	assert.Equal(t, int64(1), snap.FeedsFailed)
	assert.Equal(t, int64(1), snap.AuthzChecks)
	assert.True(t, snap.LastFullPush.IsZero())
}

func TestLastFullPushTimestamp(t *testing.T) {
	j := journal.New()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j.RecordFullPushCompleted(now)
	assert.Equal(t, now.Unix(), j.Snapshot().LastFullPush.Unix())
}

func TestHistogramDistributesAcrossBuckets(t *testing.T) {
	j := journal.New()
	for i := 0; i < 500; i++ {
		j.RecordDocsPushed(string(rune('a'+i%26))+string(rune(i)), 1)
	}
	snap := j.Snapshot()
	var nonZero int
	for _, v := range snap.Histogram {
		if v > 0 {
			nonZero++
		}
	}
	assert.Greater(t, nonZero, 1, "500 distinct ids should spread across more than one bucket")
}

func TestConcurrentRecordingIsRaceFree(t *testing.T) {
	j := journal.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			j.RecordDocsPushed("doc", 1)
			j.RecordDocServed()
		}(i)
	}
	wg.Wait()
	snap := j.Snapshot()
	assert.Equal(t, int64(50), snap.DocsPushed)
	assert.Equal(t, int64(50), snap.DocsServed)
}
