package docidsender_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/docidsender"
	"github.com/opendocfeed/adaptor/internal/feed"
	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alwaysAbort struct{}

func (alwaysAbort) HandleFailedToSend(err error, attempt int) docidsender.RetryDecision {
	return docidsender.AbortPush
}

type alwaysContinue struct{}

func (alwaysContinue) HandleFailedToSend(err error, attempt int) docidsender.RetryDecision {
	return docidsender.ContinueSkippingBatch
}

func newSender(t *testing.T, handler http.HandlerFunc) (*docidsender.Sender, *journal.Journal) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	codec, err := docidcodec.New("http://gsa.example.com/doc/")
	require.NoError(t, err)

	j := journal.New()
	fs := feed.NewSender(srv.URL, "ds", "UTF-8", feed.WithHTTPClient(srv.Client()))
	return docidsender.New(codec, fs, j), j
}

func TestPushRecordsSuccess(t *testing.T) {
	s, j := newSender(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "Success")
	})

	failed, err := s.PushRecords(context.Background(), []docidsender.Record{{Id: "1001"}, {Id: "1002"}}, nil)
	require.NoError(t, err)
	assert.Nil(t, failed)
	assert.Equal(t, int64(2), j.Snapshot().DocsPushed)
	assert.Equal(t, int64(1), j.Snapshot().FeedsSent)
}

func TestPushRecordsEmptyIsNoop(t *testing.T) {
	s, j := newSender(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not send a feed for zero records")
	})
	failed, err := s.PushRecords(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, failed)
	assert.Equal(t, int64(0), j.Snapshot().FeedsSent)
}

func TestPushRecordsAbortReturnsFirstRecord(t *testing.T) {
	var calls int32
	s, j := newSender(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	failed, err := s.PushRecords(context.Background(), []docidsender.Record{{Id: "1001"}, {Id: "1002"}}, alwaysAbort{})
	require.Error(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, "1001", failed.Id)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "abort must not retry")
	assert.Equal(t, int64(1), j.Snapshot().FeedsFailed)
}

func TestPushRecordsContinueSkipsBatch(t *testing.T) {
	s, _ := newSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	failed, err := s.PushRecords(context.Background(), []docidsender.Record{{Id: "1001"}}, alwaysContinue{})
	require.NoError(t, err)
	assert.Nil(t, failed)
}

func TestPushRecordsNilHandlerFailsImmediately(t *testing.T) {
	s, _ := newSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	failed, err := s.PushRecords(context.Background(), []docidsender.Record{{Id: "1001"}}, nil)
	require.Error(t, err)
	require.NotNil(t, failed)
	assert.Equal(t, "1001", failed.Id)
}
