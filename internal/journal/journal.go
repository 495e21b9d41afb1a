// Package journal records the operational counters exposed to the (out of
// scope) dashboard: push/serve counts, per-docid-hash histograms, and the
// timestamp of the last completed full push.
package journal

import (
	"hash/fnv"
	"sync/atomic"
	"time"
)

// histogramStripes is the number of independent atomic buckets the
// histogram spreads writes across, keyed by hash(docID)%histogramStripes,
// so concurrent pushes touching different documents never contend on the
// same cache line.
const histogramStripes = 64

// Journal accumulates counters under concurrent access from many
// goroutines. All fields are safe for concurrent use; there is no method
// that requires external locking.
type Journal struct {
	docsPushed      atomic.Int64
	docsServed      atomic.Int64
	feedsSent       atomic.Int64
	feedsFailed     atomic.Int64
	authzChecks     atomic.Int64
	lastFullPushSec atomic.Int64 // unix seconds; 0 means never

	histogram [histogramStripes]atomic.Int64
}

// New returns an empty Journal.
func New() *Journal {
	return &Journal{}
}

// RecordDocsPushed adds n to the pushed-document counter and bumps the
// per-docid histogram bucket for id.
func (j *Journal) RecordDocsPushed(id string, n int64) {
	j.docsPushed.Add(n)
	j.histogram[bucketFor(id)].Add(n)
}

// RecordDocServed increments the served-document counter for a single
// content GET.
func (j *Journal) RecordDocServed() {
	j.docsServed.Add(1)
}

// RecordFeedSent increments the successful-feed-send counter.
func (j *Journal) RecordFeedSent() {
	j.feedsSent.Add(1)
}

// RecordFeedFailed increments the permanently-failed-feed-send counter.
func (j *Journal) RecordFeedFailed() {
	j.feedsFailed.Add(1)
}

// RecordAuthzCheck increments the authorization-decision counter.
func (j *Journal) RecordAuthzCheck() {
	j.authzChecks.Add(1)
}

// RecordFullPushCompleted stamps the last-full-push timestamp with t.
func (j *Journal) RecordFullPushCompleted(t time.Time) {
	j.lastFullPushSec.Store(t.Unix())
}

// Snapshot is a point-in-time, immutable read of the journal's counters.
type Snapshot struct {
	DocsPushed  int64
	DocsServed  int64
	FeedsSent   int64
	FeedsFailed int64
	AuthzChecks int64
	// LastFullPush is the zero time if no full push has completed yet.
	LastFullPush time.Time
	// Histogram is a defensive copy of the per-bucket counts.
	Histogram [histogramStripes]int64
}

// Snapshot reads all counters. Individual counters may be updated
// concurrently with the read; callers get atomically-consistent
// per-counter values, not a single frozen instant across all of them.
func (j *Journal) Snapshot() Snapshot {
	s := Snapshot{
		DocsPushed:  j.docsPushed.Load(),
		DocsServed:  j.docsServed.Load(),
		FeedsSent:   j.feedsSent.Load(),
		FeedsFailed: j.feedsFailed.Load(),
		AuthzChecks: j.authzChecks.Load(),
	}
	if sec := j.lastFullPushSec.Load(); sec != 0 {
		s.LastFullPush = time.Unix(sec, 0)
	}
	for i := range j.histogram {
		s.Histogram[i] = j.histogram[i].Load()
	}
	return s
}

func bucketFor(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32() % histogramStripes
}
