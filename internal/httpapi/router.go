package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
)

// PushNowFunc triggers an out-of-schedule full push, mirroring the
// controller's admin push-now trigger.
type PushNowFunc func(ctx context.Context) error

// Config bundles everything Router needs to wire the fixed endpoint set.
type Config struct {
	Adaptor       Adaptor
	Codec         *docidcodec.Codec
	Sessions      *session.Manager
	Journal       *journal.Journal
	ServiceProv   *samlutil.ServiceProvider
	AuthzSigner   *samlutil.AuthzSigner
	AuthzVerifier *samlutil.AuthzVerifier
	AllowedCIDRs  []string
	PushNow       PushNowFunc
	AdminEnabled  bool
	DocIdPath     string
	Logger        *slog.Logger
}

// NewRouter builds the adaptor's HTTP surface:
//
//	GET  <DocIdPath>/*             document content
//	GET  /samlassertionconsumer    SAML authn initiation redirect target's
//	                                counterpart; browsers land here first
//	POST /samlassertionconsumer    SAML Response consumption
//	POST /saml-authz               batch AuthzDecisionQuery
//	POST /admin/push-now           trigger a full push out of schedule
func NewRouter(cfg Config) (chi.Router, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	var authn *AuthnHandler
	if cfg.ServiceProv != nil {
		authn = NewAuthnHandler(cfg.ServiceProv, cfg.Sessions, logger)
		r.Get("/samlassertionconsumer", authn.Initiate)
		r.Post("/samlassertionconsumer", authn.AssertionConsumer)
	}

	docHandler, err := NewDocHandler(cfg.Adaptor, cfg.Codec, cfg.Sessions, cfg.Journal, authn, cfg.AllowedCIDRs, logger)
	if err != nil {
		return nil, err
	}
	r.Get(strings.TrimSuffix(cfg.DocIdPath, "/")+"/*", docHandler.ServeHTTP)

	if cfg.AuthzSigner != nil {
		authz, err := NewAuthzHandler(cfg.Adaptor, cfg.Codec, cfg.AuthzSigner, cfg.AuthzVerifier, cfg.AllowedCIDRs, logger)
		if err != nil {
			return nil, err
		}
		r.Post("/saml-authz", authz.ServeHTTP)
	}

	if cfg.AdminEnabled && cfg.PushNow != nil {
		r.Post("/admin/push-now", func(w http.ResponseWriter, req *http.Request) {
			if err := cfg.PushNow(req.Context()); err != nil {
				logger.Error("push-now failed", "error", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		})
	}

	return r, nil
}
