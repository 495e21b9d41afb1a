package adaptor

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	dsig "github.com/russellhaering/goxmldsig"

	"github.com/opendocfeed/adaptor/internal/config"
	"github.com/opendocfeed/adaptor/internal/controller"
	"github.com/opendocfeed/adaptor/internal/docidcodec"
	"github.com/opendocfeed/adaptor/internal/docidsender"
	"github.com/opendocfeed/adaptor/internal/feed"
	"github.com/opendocfeed/adaptor/internal/httpapi"
	"github.com/opendocfeed/adaptor/internal/journal"
	"github.com/opendocfeed/adaptor/internal/samlutil"
	"github.com/opendocfeed/adaptor/internal/session"
	"github.com/opendocfeed/adaptor/internal/tlsconfig"
)

const (
	sessionTTL          = 30 * time.Minute
	sessionMaxSweep     = 5 * time.Minute
	defaultShutdownWait = 3 * time.Second
	defaultFeedTimeout  = 30 * time.Second
	authzQueryMaxSkew   = 5 * time.Minute
)

// Start loads configuration from configPath, wires the full adaptor
// (session manager, feed sender and docid delivery, SAML flows when
// server.secure is set, and the HTTP listener), calls impl.Init through
// the controller, and starts serving. The returned shutdown function is
// idempotent and safe to call multiple times.
//
// Start does not block; use Run for a blocking, signal-aware entrypoint.
func Start(ctx context.Context, impl Adaptor, configPath string) (shutdown func(ctx context.Context) error, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("adaptor: load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("adaptor: invalid config: %w", err)
	}

	logger := slog.Default()
	cfgMgr := config.NewManager(cfg)

	baseURL := fmt.Sprintf("%s://%s:%d%s", schemeFor(cfg), cfg.Server.Hostname, cfg.Server.Port, ensureTrailingSlash(cfg.Server.DocIdPath))
	codec, err := docidcodec.New(baseURL)
	if err != nil {
		return nil, fmt.Errorf("adaptor: build docid codec: %w", err)
	}

	feedTimeout := defaultFeedTimeout
	if cfg.Gsa.FeedTimeout != "" {
		if d, parseErr := time.ParseDuration(cfg.Gsa.FeedTimeout); parseErr == nil {
			feedTimeout = d
		}
	}
	feedSender := feed.NewSender(
		fmt.Sprintf("https://%s/xmlfeed", cfg.Gsa.Hostname),
		cfg.Server.Hostname,
		cfg.Gsa.CharacterEncoding,
		feed.WithTimeout(feedTimeout),
		feed.WithLogger(logger),
	)

	j := journal.New()
	pusher := docidsender.New(codec, feedSender, j)
	sessions := session.NewManager(cfg.Server.Port, cfg.Server.Secure, sessionTTL, sessionMaxSweep)

	actx := newAdaptorContext(cfgMgr, pusher, codec)
	bridge := wrapAdaptor(impl, codec, actx)

	var tlsCfg *tls.Config
	var serviceProvider *samlutil.ServiceProvider
	var authzSigner *samlutil.AuthzSigner
	var authzVerifier *samlutil.AuthzVerifier

	if cfg.Server.Secure {
		// KeyAlias names the server's TLS identity; there is no keystore
		// abstraction here, so the alias is used as a path prefix for the
		// PEM pair (a relative alias resolves against the working directory).
		tlsCfg, err = tlsconfig.Build(tlsconfig.ServerConfig{
			CertFile:       cfg.Server.KeyAlias + ".crt",
			KeyFile:        cfg.Server.KeyAlias + ".key",
			TrustStoreFile: cfg.TLS.TrustStorePath,
		})
		if err != nil {
			return nil, fmt.Errorf("adaptor: build tls config: %w", err)
		}

		var signingCert *tls.Certificate
		if cfg.Saml.SigningCertPath != "" && cfg.Saml.SigningKeyPath != "" {
			loaded, loadErr := tls.LoadX509KeyPair(cfg.Saml.SigningCertPath, cfg.Saml.SigningKeyPath)
			if loadErr != nil {
				return nil, fmt.Errorf("adaptor: load saml signing key pair: %w", loadErr)
			}
			signingCert = &loaded
			authzSigner = samlutil.NewAuthzSigner(dsig.TLSCertKeyStore(loaded))
		}

		if cfg.Saml.RequireSignedAssertions {
			trustedCerts, loadErr := tlsconfig.LoadCertificates(cfg.TLS.TrustStorePath)
			if loadErr != nil {
				return nil, fmt.Errorf("adaptor: load authz query trust store: %w", loadErr)
			}
			authzVerifier = samlutil.NewAuthzVerifier(&dsig.MemoryX509CertificateStore{Roots: trustedCerts}, authzQueryMaxSkew)
		}

		if cfg.Saml.IdpMetadataURL != "" {
			idpMetadata, metaErr := samlutil.FetchIdpMetadata(ctx, cfg.Saml.IdpMetadataURL)
			if metaErr != nil {
				return nil, fmt.Errorf("adaptor: fetch idp metadata: %w", metaErr)
			}

			spCfg := samlutil.Config{
				EntityID:    cfg.Saml.SPEntityID,
				AcsURL:      fmt.Sprintf("https://%s:%d/samlassertionconsumer", cfg.Server.Hostname, cfg.Server.Port),
				IdpMetadata: idpMetadata,
			}
			if signingCert != nil {
				if signer, ok := signingCert.PrivateKey.(crypto.Signer); ok {
					spCfg.Key = signer
				}
				spCfg.Certificate = certFromCert(signingCert)
			}
			serviceProvider, err = samlutil.New(spCfg)
			if err != nil {
				return nil, fmt.Errorf("adaptor: build saml service provider: %w", err)
			}
		}
	}

	ctrl := controller.New(controller.Deps{
		Adaptor:   bridge,
		ConfigMgr: cfgMgr,
		Sessions:  sessions,
		Journal:   j,
		Pusher:    pusher,
		Logger:    logger,
	})
	actx.ctrl = ctrl

	router, err := httpapi.NewRouter(httpapi.Config{
		Adaptor:       bridge,
		Codec:         codec,
		Sessions:      sessions,
		Journal:       j,
		ServiceProv:   serviceProvider,
		AuthzSigner:   authzSigner,
		AuthzVerifier: authzVerifier,
		AllowedCIDRs:  cfg.TLS.GsaAllowedIPs,
		PushNow:       ctrl.PushNow,
		AdminEnabled:  cfg.Server.AdminEnabled,
		DocIdPath:     cfg.Server.DocIdPath,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("adaptor: build router: %w", err)
	}

	if err := ctrl.Start(ctx, router, tlsCfg); err != nil {
		return nil, fmt.Errorf("adaptor: start controller: %w", err)
	}

	var once bool
	shutdown = func(shutdownCtx context.Context) error {
		if once {
			return nil
		}
		once = true
		maxDelay := defaultShutdownWait
		if deadline, ok := shutdownCtx.Deadline(); ok {
			if d := time.Until(deadline); d > 0 {
				maxDelay = d
			}
		}
		ctrl.Stop(maxDelay)
		return nil
	}
	return shutdown, nil
}

// Run is a blocking, signal-aware entrypoint: it calls Start, then waits
// for ctx to be canceled or SIGINT/SIGTERM, then performs a bounded
// graceful shutdown and returns.
func Run(ctx context.Context, impl Adaptor, configPath string) error {
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := Start(runCtx, impl, configPath)
	if err != nil {
		return err
	}

	<-runCtx.Done()
	log.Println("adaptor: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownWait)
	defer cancel()
	return shutdown(shutdownCtx)
}

func schemeFor(cfg *config.Config) string {
	if cfg.Server.Secure {
		return "https"
	}
	return "http"
}

func ensureTrailingSlash(p string) string {
	if p == "" {
		return "/"
	}
	if p[len(p)-1] != '/' {
		return p + "/"
	}
	return p
}

func certFromCert(cert *tls.Certificate) *x509.Certificate {
	if cert == nil || len(cert.Certificate) == 0 {
		return nil
	}
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil
	}
	return parsed
}
