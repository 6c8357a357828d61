package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// ChronosphereConfig represents the configuration of the remote API client.
type ChronosphereConfig struct {
	Tenant string
	// APIURL defaults to the tenant URL.
	APIURL string
	// APIToken is only read from the environment.
	APIToken       string
	RequestTimeout time.Duration
	MaxRetries     uint64
}

// Validate validates the Chronosphere configuration. It is skipped in dry-run mode.
func (c ChronosphereConfig) Validate() error {
	var errs []error

	if c.Tenant == "" {
		errs = append(errs, errors.New("tenant is required, set --tenant or CHRONOSPHERE_ORG_NAME"))
	} else if err := NewTenantValidator().ValidateTenantName(c.Tenant); err != nil {
		errs = append(errs, err)
	}

	u, err := url.Parse(c.APIURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid api url %q: %w", c.APIURL, err))
	case u.Scheme != "https" && u.Scheme != "http":
		errs = append(errs, fmt.Errorf("invalid api url %q: scheme must be http or https", c.APIURL))
	}

	if c.APIToken == "" {
		errs = append(errs, errors.New("api token is required, set CHRONOSPHERE_API_TOKEN"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}

	return utilerrors.NewAggregate(errs)
}
