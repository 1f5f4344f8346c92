// Package config loads the cbtc YAML configuration.
//
// Loading applies struct defaults, overlays the file, expands ${VAR}
// references from the environment, decrypts "aes-256-gcm:" secrets and
// validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/auth"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/client"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/ledger"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/registry"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/token"
	"github.com/chainsafe/canton-cbtc/pkg/keys"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Keycloak   KeycloakConfig   `yaml:"keycloak"`
	Canton     CantonConfig     `yaml:"canton"`
	Transfer   TransferConfig   `yaml:"transfer"`
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Shutdown   ShutdownConfig   `yaml:"shutdown"`
}

// KeycloakConfig contains identity provider settings.
// Either username/password or client_secret selects the login grant.
type KeycloakConfig struct {
	Host         string        `yaml:"host" validate:"required,url"`
	Realm        string        `yaml:"realm" validate:"required"`
	ClientID     string        `yaml:"client_id" validate:"required"`
	ClientSecret string        `yaml:"client_secret" validate:"required_without=Username"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password" validate:"required_with=Username"`
	ExpiryLeeway time.Duration `yaml:"expiry_leeway" default:"60s"`
	Timeout      time.Duration `yaml:"timeout" default:"30s"`
}

// CantonConfig contains participant, registry and instrument settings
type CantonConfig struct {
	LedgerHost  string `yaml:"ledger_host" validate:"required,url"`
	RegistryURL string `yaml:"registry_url" validate:"required,url"`
	PartyID     string `yaml:"party_id" validate:"required"`

	// DecentralizedPartyID is resolved from Network when empty.
	DecentralizedPartyID string `yaml:"decentralized_party_id" validate:"required"`
	Network              string `yaml:"network" default:"devnet" validate:"omitempty,oneof=mainnet testnet devnet"`
	InstrumentID         string `yaml:"instrument_id" default:"CBTC" validate:"required"`

	RequestTimeout time.Duration `yaml:"request_timeout" default:"60s"`
	RetryCount     int           `yaml:"retry_count" default:"2" validate:"gte=0"`
}

// TransferConfig contains chain and batch settings
type TransferConfig struct {
	ReferenceBase        string        `yaml:"reference_base"`
	ExecuteBefore        time.Duration `yaml:"execute_before" default:"168h" validate:"gt=0"`
	BatchSize            int           `yaml:"batch_size" default:"5" validate:"gte=1"`
	ConsolidateThreshold int           `yaml:"consolidate_threshold" default:"10" validate:"gte=2"`
	Workers              int           `yaml:"workers" default:"1" validate:"gte=1"`
}

// DatabaseConfig contains database connection settings.
// Results are persisted only when Enabled is set.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user" validate:"required_if=Enabled true"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"cbtc"`
	SSLMode  string `yaml:"ssl_mode" default:"disable" validate:"oneof=disable require verify-full"`
}

// ServerConfig contains ops HTTP server settings
type ServerConfig struct {
	Host         string        `yaml:"host" default:"0.0.0.0"`
	Port         int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// ShutdownConfig contains graceful shutdown settings
type ShutdownConfig struct {
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment.
// Existing variables are not overridden; a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(raw)
}

// Parse builds a configuration from YAML bytes.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.decryptSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.resolveNetwork(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) decryptSecrets() error {
	secrets := []*string{
		&c.Keycloak.ClientSecret,
		&c.Keycloak.Password,
		&c.Database.Password,
	}

	var key []byte
	for _, s := range secrets {
		if !keys.IsEncrypted(*s) {
			continue
		}
		if key == nil {
			k, err := keys.KeyFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load secret key: %w", err)
			}
			key = k
		}
		plain, err := keys.Decrypt(*s, key)
		if err != nil {
			return fmt.Errorf("failed to decrypt secret: %w", err)
		}
		*s = plain
	}
	return nil
}

func (c *Config) resolveNetwork() error {
	if c.Canton.DecentralizedPartyID != "" {
		return nil
	}
	id, err := token.DecentralizedPartyID(c.Canton.Network)
	if err != nil {
		return fmt.Errorf("canton.network: %w", err)
	}
	c.Canton.DecentralizedPartyID = id
	return nil
}

func validate(cfg *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "Config.keycloak.host"; drop the root type name.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		msgs = append(msgs, fmt.Sprintf("%s failed %q", field, fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Instrument returns the configured token instrument.
func (c *CantonConfig) Instrument() token.InstrumentID {
	return token.InstrumentID{Admin: c.DecentralizedPartyID, ID: c.InstrumentID}
}

// SDK returns the Canton SDK configuration.
func (c *Config) SDK() *client.Config {
	return &client.Config{
		Ledger: &ledger.Config{
			Host:       c.Canton.LedgerHost,
			Timeout:    c.Canton.RequestTimeout,
			RetryCount: c.Canton.RetryCount,
		},
		Auth: &auth.Config{
			Host:         c.Keycloak.Host,
			Realm:        c.Keycloak.Realm,
			ClientID:     c.Keycloak.ClientID,
			ClientSecret: c.Keycloak.ClientSecret,
			Username:     c.Keycloak.Username,
			Password:     c.Keycloak.Password,
			ExpiryLeeway: c.Keycloak.ExpiryLeeway,
			Timeout:      c.Keycloak.Timeout,
		},
		Registry: &registry.Config{
			URL:                  c.Canton.RegistryURL,
			DecentralizedPartyID: c.Canton.DecentralizedPartyID,
			Timeout:              c.Canton.RequestTimeout,
			RetryCount:           c.Canton.RetryCount,
		},
		Token: &token.Config{Instrument: c.Canton.Instrument()},
	}
}

// Addr returns the ops server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
