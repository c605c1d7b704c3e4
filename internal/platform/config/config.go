package config

import (
	"os"
	"time"
)

// TokenTTL is the default access token lifetime. The observed default is
// deliberately long; override with TOKEN_TTL in any real deployment.
var TokenTTL = 3000 * time.Minute

// LedgerConfirmTimeout bounds a single ledger attestation attempt,
// including transaction confirmation.
var LedgerConfirmTimeout = 60 * time.Second

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	TokenTTL      time.Duration

	DatabaseURL string
	RedisURL    string

	KafkaBrokers string
	AuditTopic   string

	LedgerNodeURL   string
	ContractAddress string
	LedgerTimeout   time.Duration

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CERTLEDGER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	tokenTTL := TokenTTL
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if duration, err := time.ParseDuration(v); err == nil {
			tokenTTL = duration
		}
	}

	ledgerTimeout := LedgerConfirmTimeout
	if v := os.Getenv("LEDGER_TIMEOUT"); v != "" {
		if duration, err := time.ParseDuration(v); err == nil {
			ledgerTimeout = duration
		}
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "certledger.audit"
	}

	return Server{
		Addr:            addr,
		Environment:     environment,
		JWTSigningKey:   jwtSigningKey,
		TokenTTL:        tokenTTL,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		AuditTopic:      auditTopic,
		LedgerNodeURL:   os.Getenv("LEDGER_NODE_URL"),
		ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
		LedgerTimeout:   ledgerTimeout,
		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
	}
}
