// Package docidsender orchestrates pushing DocIdRecords and NamedResources
// to the Appliance: batching, journal accounting, and the resumable-on-
// failure semantics resolved for the "should a push resume or restart"
// design decision.
package docidsender

import (
	"context"
	"time"

	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/feed"
	"github.com/opendocfeed/adaptor/internal/journal"
)

// RetryDecision mirrors the root package's adaptor.RetryDecision by shape,
// avoiding an import of the root package from an internal one.
type RetryDecision int

const (
	RetryPush RetryDecision = iota
	AbortPush
	ContinueSkippingBatch
)

// ErrorHandler mirrors adaptor.PushErrorHandler by shape.
type ErrorHandler interface {
	HandleFailedToSend(err error, attempt int) RetryDecision
}

// Record is the sender's input shape, decoupled from the root package's
// DocIdRecord so this package has no dependency on it.
type Record struct {
	Id               string
	LastModified     *time.Time
	Delete           bool
	CrawlImmediately bool
	Lock             bool
	ResultLink       *string
	Metadata         map[string]string
}

// NamedResource is the sender's input shape for an ACL-only push.
type NamedResource struct {
	Id  string
	Acl feed.AclFragment
}

const maxSendAttempts = 3

// Sender pushes batches of records to the Appliance, encoding DocIds via
// codec and delegating XML composition/HTTP delivery to internal/feed.
type Sender struct {
	codec   *docidcodec.Codec
	feed    *feed.Sender
	journal *journal.Journal
}

// New builds a Sender.
func New(codec *docidcodec.Codec, feedSender *feed.Sender, j *journal.Journal) *Sender {
	return &Sender{codec: codec, feed: feedSender, journal: j}
}

// PushRecords sends one feed containing records, in order. On success it
// returns (nil, nil). On a permanent per-batch failure, after consulting
// handler up to maxSendAttempts times, it returns the batch's first record
// (the batch is sent as one feed, so it fails as a whole; this repository's
// resumable design: the caller may retry a push starting from the returned
// record, rather than restarting from the top) together with the last error.
func (s *Sender) PushRecords(ctx context.Context, records []Record, handler ErrorHandler) (*Record, error) {
	if len(records) == 0 {
		return nil, nil
	}

	feedRecords := make([]feed.Record, len(records))
	for i, r := range records {
		feedRecords[i] = feed.Record{
			URL:              s.codec.Encode(r.Id),
			LastModified:     r.LastModified,
			Delete:           r.Delete,
			CrawlImmediately: r.CrawlImmediately,
			Lock:             r.Lock,
			ResultLink:       r.ResultLink,
			Metadata:         r.Metadata,
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		lastErr = s.feed.Send(ctx, feed.TypeFullReplace, feedRecords)
		if lastErr == nil {
			s.journal.RecordFeedSent()
			s.journal.RecordDocsPushed(records[0].Id, int64(len(records)))
			return nil, nil
		}

		s.journal.RecordFeedFailed()
		if handler == nil {
			return &records[0], lastErr
		}

		switch handler.HandleFailedToSend(lastErr, attempt) {
		case RetryPush:
			continue
		case ContinueSkippingBatch:
			return nil, nil
		case AbortPush:
			return &records[0], lastErr
		default:
			return &records[0], lastErr
		}
	}
	return &records[0], lastErr
}

// PushNamedResources sends a single ACL-only feed. Its resumability
// contract mirrors PushRecords: on permanent failure it returns the first
// resource's id.
func (s *Sender) PushNamedResources(ctx context.Context, resources []NamedResource, handler ErrorHandler) (*string, error) {
	if len(resources) == 0 {
		return nil, nil
	}

	feedRecords := make([]feed.Record, len(resources))
	for i, r := range resources {
		acl := r.Acl
		feedRecords[i] = feed.Record{
			URL: s.codec.Encode(r.Id),
			Acl: &acl,
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		lastErr = s.feed.Send(ctx, feed.TypeMetadataOnly, feedRecords)
		if lastErr == nil {
			s.journal.RecordFeedSent()
			return nil, nil
		}

		s.journal.RecordFeedFailed()
		if handler == nil {
			return &resources[0].Id, lastErr
		}

		switch handler.HandleFailedToSend(lastErr, attempt) {
		case RetryPush:
			continue
		case ContinueSkippingBatch:
			return nil, nil
		default:
			return &resources[0].Id, lastErr
		}
	}
	return &resources[0].Id, lastErr
}
