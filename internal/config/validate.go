package config

import (
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks cfg for the field-level constraints implied by every
// downstream component (codec base path, scheduler cron expression, feed
// timeout duration), returning every violation found rather than stopping
// at the first.
func Validate(cfg *Config) error {
	errs := &ValidationErrors{}

	if cfg.Server.DocIdPath == "" {
		errs.add("server.doc_id_path must be set")
	}
	if cfg.Server.Secure && cfg.Server.KeyAlias == "" {
		errs.add("server.key_alias must be set when server.secure is true")
	}

	if cfg.Gsa.Hostname == "" {
		errs.add("gsa.hostname must be set")
	}
	if cfg.Gsa.FeedTimeout != "" {
		if _, err := time.ParseDuration(cfg.Gsa.FeedTimeout); err != nil {
			errs.add("gsa.feed_timeout %q is not a valid duration: %w", cfg.Gsa.FeedTimeout, err)
		}
	}

	if cfg.Adaptor.FullListingSchedule == "" {
		errs.add("adaptor.full_listing_schedule must be set")
	} else if _, err := cronParser.Parse(cfg.Adaptor.FullListingSchedule); err != nil {
		errs.add("adaptor.full_listing_schedule %q is not a valid cron expression: %w", cfg.Adaptor.FullListingSchedule, err)
	}
	if cfg.Adaptor.IncrementalPollPeriodSecs < 0 {
		errs.add("adaptor.incremental_poll_period_secs must not be negative")
	}

	if cfg.Saml.RequireSignedAssertions && cfg.Saml.IdpMetadataURL == "" {
		errs.add("saml.idp_metadata_url must be set when saml.require_signed_assertions is true")
	}
	if (cfg.Saml.SigningCertPath == "") != (cfg.Saml.SigningKeyPath == "") {
		errs.add("saml.signing_cert_path and saml.signing_key_path must both be set or both be empty")
	}

	return errs.asError()
}
