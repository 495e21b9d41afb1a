package httpapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocfeed/adaptor/internal/httpapi"
	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

func TestRouterServesDocsAndAdminPushNow(t *testing.T) {
	codec := newTestCodec(t)
	sessions := session.NewManager(8080, false, time.Hour, time.Minute)
	pushed := false

	router, err := httpapi.NewRouter(httpapi.Config{
		Adaptor: &stubAdaptor{
			authz: map[string]samlutil.AuthzDecision{"reports/q1": samlutil.AuthzPermit},
		},
		Codec:        codec,
		Sessions:     sessions,
		Journal:      journal.New(),
		AdminEnabled: true,
		DocIdPath:    "/doc",
		PushNow: func(context.Context) error {
			pushed = true
			return nil
		},
	})
	require.NoError(t, err)

	server := httptest.NewServer(router)
	defer server.Close()

	resp, err := http.Post(server.URL+"/admin/push-now", "application/octet-stream", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, pushed)
}
