package controller_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendocfeed/adaptor/internal/config"
	"github.com/opendocfeed/adaptor/internal/controller"
	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/docidsender"
	"github.com/opendocfeed/adaptor/internal/feed"
	"github.com/opendocfeed/adaptor/internal/httpapi"
	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

type fakeAdaptor struct {
	initCalled    bool
	destroyCalled bool
	pushCalls     int
}

func (f *fakeAdaptor) Init(context.Context) error { f.initCalled = true; return nil }
func (f *fakeAdaptor) Destroy()                   { f.destroyCalled = true }
func (f *fakeAdaptor) GetDocIds(context.Context, httpapi.DocIdPusher) error {
	f.pushCalls++
	return nil
}
func (f *fakeAdaptor) GetDocContent(context.Context, httpapi.Request, httpapi.Response) error {
	return nil
}
func (f *fakeAdaptor) IsUserAuthorized(context.Context, session.Identity, []string) (map[string]samlutil.AuthzDecision, error) {
	return nil, nil
}

type configModifiedAdaptor struct {
	fakeAdaptor
	notified [][]string
}

func (a *configModifiedAdaptor) ConfigModified(changedKeys []string) {
	a.notified = append(a.notified, changedKeys)
}

func newTestDeps(t *testing.T, adaptor httpapi.Adaptor) (*controller.Controller, *config.Manager) {
	t.Helper()

	appliance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Success"))
	}))
	t.Cleanup(appliance.Close)

	codec, err := docidcodec.New("https://adaptor.example.com/doc/")
	require.NoError(t, err)

	feedSender := feed.NewSender(appliance.URL, "adaptor", "UTF-8")
	pusher := docidsender.New(codec, feedSender, journal.New())

	cfg := &config.Config{
		Server:  config.ServerSection{Port: 0, Hostname: "localhost", DocIdPath: "/doc"},
		Gsa:     config.GsaSection{Hostname: "gsa.example.com", CharacterEncoding: "UTF-8", FeedTimeout: "5s"},
		Adaptor: config.AdaptorSection{FullListingSchedule: "@every 1h"},
	}
	cfgMgr := config.NewManager(cfg)

	c := controller.New(controller.Deps{
		Adaptor:   adaptor,
		ConfigMgr: cfgMgr,
		Sessions:  session.NewManager(0, false, time.Hour, time.Minute),
		Journal:   journal.New(),
		Pusher:    pusher,
		Logger:    nil,
	})
	return c, cfgMgr
}

func TestControllerStartInitializesAdaptorAndStopDestroys(t *testing.T) {
	adaptor := &fakeAdaptor{}
	c, _ := newTestDeps(t, adaptor)

	router := http.NewServeMux()
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, router, nil))
	assert.True(t, adaptor.initCalled)
	assert.NotEmpty(t, c.Addr())

	c.Stop(2 * time.Second)
	assert.True(t, adaptor.destroyCalled)
}

func TestControllerPushNowInvokesGetDocIds(t *testing.T) {
	adaptor := &fakeAdaptor{}
	c, _ := newTestDeps(t, adaptor)

	router := http.NewServeMux()
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, router, nil))
	defer c.Stop(2 * time.Second)

	require.NoError(t, c.PushNow(ctx))
	assert.Eventually(t, func() bool { return adaptor.pushCalls >= 1 }, time.Second, 10*time.Millisecond)
}

func TestControllerReschedulesFullPushOnConfigChange(t *testing.T) {
	adaptor := &fakeAdaptor{}
	c, cfgMgr := newTestDeps(t, adaptor)

	router := http.NewServeMux()
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, router, nil))
	defer c.Stop(2 * time.Second)

	next := *cfgMgr.Current()
	next.Adaptor.FullListingSchedule = "@every 5ms"
	cfgMgr.Set(&next)

	assert.Eventually(t, func() bool { return adaptor.pushCalls >= 1 }, time.Second, 10*time.Millisecond)
}

func TestControllerNotifiesConfigModifiedAdaptor(t *testing.T) {
	adaptor := &configModifiedAdaptor{}
	c, cfgMgr := newTestDeps(t, adaptor)

	router := http.NewServeMux()
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, router, nil))
	defer c.Stop(2 * time.Second)

	next := *cfgMgr.Current()
	next.Gsa.Hostname = "other.example.com"
	cfgMgr.Set(&next)

	assert.Eventually(t, func() bool { return len(adaptor.notified) >= 1 }, time.Second, 10*time.Millisecond)
}

func TestControllerStartRejectsDoubleStart(t *testing.T) {
	adaptor := &fakeAdaptor{}
	c, _ := newTestDeps(t, adaptor)

	router := http.NewServeMux()
	ctx := context.Background()
	require.NoError(t, c.Start(ctx, router, nil))
	defer c.Stop(2 * time.Second)

	err := c.Start(ctx, router, nil)
	assert.ErrorIs(t, err, controller.ErrAlreadyStarted)
}

func TestControllerPushNowBeforeStartReturnsErrNotStarted(t *testing.T) {
	adaptor := &fakeAdaptor{}
	c, _ := newTestDeps(t, adaptor)

	err := c.PushNow(context.Background())
	assert.ErrorIs(t, err, controller.ErrNotStarted)
}
