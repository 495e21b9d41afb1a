package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// successMarker is the literal string a successful Appliance response body
// must contain.
const successMarker = "Success"

// Sender POSTs composed feed documents to the Appliance's /xmlfeed
// endpoint, retrying transient failures with exponential backoff and
// failing permanent ones immediately.
type Sender struct {
	client            *http.Client
	applianceURL      string
	dataSource        string
	characterEncoding string
	timeout           time.Duration
	logger            *slog.Logger
}

// SenderOption configures a Sender at construction time.
type SenderOption func(*Sender)

// WithHTTPClient overrides the http.Client used to reach the Appliance
// (tests substitute one pointed at an httptest.Server).
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *Sender) { s.client = c }
}

// WithLogger overrides the slog.Logger used for retry diagnostics.
func WithLogger(l *slog.Logger) SenderOption {
	return func(s *Sender) { s.logger = l }
}

// WithTimeout overrides the per-attempt wall-clock timeout (default 30s).
func WithTimeout(d time.Duration) SenderOption {
	return func(s *Sender) { s.timeout = d }
}

// NewSender builds a Sender that POSTs to applianceURL (e.g.
// "https://gsa.example.com/xmlfeed") identifying itself as dataSource.
func NewSender(applianceURL, dataSource, characterEncoding string, opts ...SenderOption) *Sender {
	s := &Sender{
		client:            http.DefaultClient,
		applianceURL:      applianceURL,
		dataSource:        dataSource,
		characterEncoding: characterEncoding,
		timeout:           30 * time.Second,
		logger:            slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Send composes and POSTs one feed for records under feedType, retrying
// transient failures (network I/O errors, HTTP 5xx) with exponential
// backoff (1s initial, factor 2, 30s cap, 5 total attempts). HTTP 4xx or a
// response body missing the success marker fails immediately without
// retry, wrapped in ErrPermanent.
func (s *Sender) Send(ctx context.Context, feedType Type, records []Record) error {
	var body bytes.Buffer
	if err := Compose(&body, Header{
		DataSource:        s.dataSource,
		FeedType:          feedType,
		CharacterEncoding: s.characterEncoding,
	}, records); err != nil {
		return fmt.Errorf("feed: compose: %w", err)
	}
	payload := body.Bytes()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.MaxInterval = 30 * time.Second
	var bounded backoff.BackOff = backoff.WithMaxRetries(policy, 4) // 4 retries + 1 initial = 5 attempts
	bounded = backoff.WithContext(bounded, ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := s.post(ctx, feedType, payload)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("feed send failed, retrying",
			"attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, bounded, notify); err != nil {
		if isPermanent(err) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return nil
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

func (s *Sender) post(ctx context.Context, feedType Type, payload []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("datasource", s.dataSource); err != nil {
		return fmt.Errorf("%w: build multipart body: %v", ErrPermanent, err)
	}
	if err := w.WriteField("feedtype", string(feedType)); err != nil {
		return fmt.Errorf("%w: build multipart body: %v", ErrPermanent, err)
	}
	if err := w.WriteField("data", string(payload)); err != nil {
		return fmt.Errorf("%w: build multipart body: %v", ErrPermanent, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: build multipart body: %v", ErrPermanent, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.applianceURL, &body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrPermanent, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: appliance returned %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: appliance returned %d", ErrPermanent, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: unexpected status %d", ErrPermanent, resp.StatusCode)
	}

	if !strings.Contains(string(respBody), successMarker) {
		return fmt.Errorf("%w: response missing %q marker", ErrPermanent, successMarker)
	}
	return nil
}
