package config

import "time"

const devSigningSecret = "dev-document-secret"

// DocumentConfig defines how generated MEL documents are kept for download.
// TTL bounds both the stored bytes and the signed download token.  Prefix
// namespaces the Redis keys.  SigningSecret signs download tokens.
type DocumentConfig struct {
	TTL           time.Duration
	Prefix        string
	SigningSecret string
}

// LoadDocumentConfig reads DOCUMENT_* variables.  Defaults are used when
// variables are not set.
func LoadDocumentConfig() DocumentConfig {
	cfg := DocumentConfig{
		TTL:           envDur("DOCUMENT_TTL", time.Hour),
		Prefix:        envStr("DOCUMENT_PREFIX", "mel:doc"),
		SigningSecret: envStr("DOCUMENT_SIGNING_SECRET", devSigningSecret),
	}
	if cfg.TTL < time.Minute {
		cfg.TTL = time.Minute
	}
	return cfg
}
