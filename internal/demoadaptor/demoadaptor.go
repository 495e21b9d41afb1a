// Package demoadaptor is a toy in-memory Adaptor: documents held in a map,
// each with a static ACL, with one more added per PollIncremental call. It exists for integration tests
// and as a runnable demonstration of adaptor.Run, not as a
// repository-specific production adaptor.
package demoadaptor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	adaptor "github.com/opendocfeed/adaptor"
)

type document struct {
	body         string
	contentType  string
	lastModified time.Time
	permitUsers  []string
	permitGroups []string
}

// Adaptor holds an in-memory document set behind a mutex, so PollIncremental
// can safely mutate it from a background goroutine while GetDocContent
// reads it from request goroutines.
type Adaptor struct {
	mu     sync.RWMutex
	docs   map[string]document
	actx   adaptor.AdaptorContext
	logger *slog.Logger
	seq    int
}

// New seeds the adaptor with a couple of sample documents.
func New(logger *slog.Logger) *Adaptor {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now()
	return &Adaptor{
		logger: logger,
		docs: map[string]document{
			"welcome": {
				body:         "Welcome to the example adaptor.\n",
				contentType:  "text/plain",
				lastModified: now,
				permitGroups: []string{"everyone"},
			},
			"reports/q1": {
				body:         "Q1 report body.\n",
				contentType:  "text/plain",
				lastModified: now,
				permitUsers:  []string{"alice"},
				permitGroups: []string{"finance"},
			},
		},
	}
}

func (a *Adaptor) Init(ctx context.Context, actx adaptor.AdaptorContext) error {
	a.actx = actx
	a.logger.Info("demoadaptor initialized", "documents", len(a.docs))
	return nil
}

func (a *Adaptor) Destroy() {
	a.logger.Info("demoadaptor destroyed")
}

func (a *Adaptor) GetDocIds(ctx context.Context, pusher adaptor.DocIdPusher) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := make([]adaptor.DocIdRecord, 0, len(a.docs))
	for id, doc := range a.docs {
		docID, err := adaptor.NewDocId(id)
		if err != nil {
			return fmt.Errorf("demoadaptor: %w", err)
		}
		lastModified := doc.lastModified
		records = append(records, adaptor.DocIdRecord{
			DocId:        docID,
			LastModified: &lastModified,
		})
	}

	_, err := pusher.PushRecords(ctx, records, nil)
	return err
}

func (a *Adaptor) GetDocContent(ctx context.Context, req adaptor.Request, resp adaptor.Response) error {
	id := req.DocId().String()

	a.mu.RLock()
	doc, ok := a.docs[id]
	a.mu.RUnlock()

	if !ok {
		resp.RespondNotFound()
		return nil
	}
	if !req.HasChangedSinceLastAccess(doc.lastModified) {
		resp.RespondNotModified()
		return nil
	}

	resp.SetContentType(doc.contentType)
	resp.SetAcl(adaptor.Acl{
		PermitUsers:  doc.permitUsers,
		PermitGroups: doc.permitGroups,
	})
	_, err := io.WriteString(resp.Writer(), doc.body)
	return err
}

func (a *Adaptor) IsUserAuthorized(ctx context.Context, identity adaptor.AuthnIdentity, ids []adaptor.DocId) (map[adaptor.DocId]adaptor.AuthzStatus, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[adaptor.DocId]adaptor.AuthzStatus, len(ids))
	for _, id := range ids {
		doc, ok := a.docs[id.String()]
		if !ok {
			result[id] = adaptor.Indeterminate
			continue
		}
		result[id] = decide(doc, identity)
	}
	return result, nil
}

func decide(doc document, identity adaptor.AuthnIdentity) adaptor.AuthzStatus {
	if len(doc.permitUsers) == 0 && len(doc.permitGroups) == 0 {
		return adaptor.Permit
	}
	for _, u := range doc.permitUsers {
		if u == identity.Username {
			return adaptor.Permit
		}
	}
	for _, g := range doc.permitGroups {
		for _, ug := range identity.Groups {
			if g == ug {
				return adaptor.Permit
			}
		}
	}
	if identity.Username == "" && len(identity.Groups) == 0 {
		// Anonymous probe against a document with rules: only "everyone"
		// group counts as public.
		for _, g := range doc.permitGroups {
			if g == "everyone" {
				return adaptor.Permit
			}
		}
	}
	return adaptor.Deny
}

// PollIncremental adds one freshly "discovered" document each call,
// demonstrating the incremental-push path without requiring an external
// data source to poll.
func (a *Adaptor) PollIncremental(ctx context.Context) error {
	a.mu.Lock()
	a.seq++
	id := fmt.Sprintf("incremental/%d", a.seq)
	a.docs[id] = document{
		body:         fmt.Sprintf("Discovered at %s.\n", time.Now().Format(time.RFC3339)),
		contentType:  "text/plain",
		lastModified: time.Now(),
		permitGroups: []string{"everyone"},
	}
	a.mu.Unlock()

	if a.actx == nil {
		return nil
	}
	docID, err := adaptor.NewDocId(id)
	if err != nil {
		return err
	}
	_, err = a.actx.DocIdPusher().PushRecords(ctx, []adaptor.DocIdRecord{{DocId: docID}}, nil)
	return err
}
