package config

import (
	"fmt"
	"strconv"
	"time"
)

// Reader is the read-only, string-keyed view of a Config snapshot handed to
// adaptor implementations. Its method set matches adaptor.ConfigReader by
// shape so the root package can use a Reader without this package
// importing the root package.
type Reader struct {
	values map[string]string
}

// newReader flattens cfg into dotted string keys, e.g. "server.port",
// "adaptor.full_listing_schedule" — the "mapping from string keys to
// string values with typed accessors" shape called for by the data model.
func newReader(cfg *Config) *Reader {
	v := map[string]string{
		"server.port":          strconv.Itoa(cfg.Server.Port),
		"server.hostname":      cfg.Server.Hostname,
		"server.secure":        strconv.FormatBool(cfg.Server.Secure),
		"server.key_alias":     cfg.Server.KeyAlias,
		"server.doc_id_path":   cfg.Server.DocIdPath,
		"server.admin_enabled": strconv.FormatBool(cfg.Server.AdminEnabled),

		"gsa.hostname":           cfg.Gsa.Hostname,
		"gsa.character_encoding": cfg.Gsa.CharacterEncoding,
		"gsa.feed_timeout":       cfg.Gsa.FeedTimeout,

		"adaptor.full_listing_schedule":         cfg.Adaptor.FullListingSchedule,
		"adaptor.incremental_poll_period_secs":  strconv.Itoa(cfg.Adaptor.IncrementalPollPeriodSecs),

		"saml.idp_metadata_url":              cfg.Saml.IdpMetadataURL,
		"saml.sp_entity_id":                  cfg.Saml.SPEntityID,
		"saml.signing_cert_path":             cfg.Saml.SigningCertPath,
		"saml.signing_key_path":              cfg.Saml.SigningKeyPath,
		"saml.require_signed_assertions":     strconv.FormatBool(cfg.Saml.RequireSignedAssertions),

		"tls.trust_store_path": cfg.TLS.TrustStorePath,
	}
	return &Reader{values: v}
}

// String returns the raw string value for key, and whether key is known.
func (r *Reader) String(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Int parses key's value as a base-10 integer.
func (r *Reader) Int(key string) (int, bool) {
	v, ok := r.values[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool parses key's value with strconv.ParseBool.
func (r *Reader) Bool(key string) (bool, bool) {
	v, ok := r.values[key]
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

// Duration parses key's value with time.ParseDuration.
func (r *Reader) Duration(key string) (time.Duration, bool) {
	v, ok := r.values[key]
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

// MustString is a convenience for internal call sites that already know a
// key is present because it was checked by Validate.
func (r *Reader) MustString(key string) string {
	v, ok := r.values[key]
	if !ok {
		panic(fmt.Sprintf("config: unknown key %q", key))
	}
	return v
}
