package config

import (
	"errors"
	"fmt"

	"github.com/Netflix/go-env"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
)

// ErrInvalidConfig wraps every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Chronosphere ChronosphereConfig
	Sync         SyncConfig
	Metrics      MetricsConfig

	Environment Environment
}

// Environment holds the settings read from environment variables.
type Environment struct {
	APIToken string `env:"CHRONOSPHERE_API_TOKEN"`
	OrgName  string `env:"CHRONOSPHERE_ORG_NAME"`
	APIURL   string `env:"CHRONOSPHERE_API_URL"`
}

// LoadEnvironment reads the environment variables into cfg.Environment.
func (c *Config) LoadEnvironment() error {
	if _, err := env.UnmarshalFromEnviron(&c.Environment); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Resolve fills the settings left unset on the command line from the environment and defaults.
func (c *Config) Resolve() {
	if c.Chronosphere.Tenant == "" {
		c.Chronosphere.Tenant = c.Environment.OrgName
	}
	if c.Chronosphere.APIURL == "" {
		c.Chronosphere.APIURL = c.Environment.APIURL
	}
	if c.Chronosphere.APIURL == "" && c.Chronosphere.Tenant != "" {
		c.Chronosphere.APIURL = chronosphere.TenantURL(c.Chronosphere.Tenant)
	}
	c.Chronosphere.APIToken = c.Environment.APIToken
}

// Validate validates the whole configuration. Every error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error

	if !c.Sync.DryRun {
		if err := c.Chronosphere.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Sync.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := utilerrors.NewAggregate(errs); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
