package config

import (
	"fmt"
	"net/url"
	"strings"
)

// MetricsConfig represents where run metrics are exported. Both are optional.
type MetricsConfig struct {
	// TextfilePath is a node exporter textfile collector file.
	TextfilePath   string
	PushgatewayURL string
}

// Enabled reports whether any export is configured.
func (c MetricsConfig) Enabled() bool {
	return c.TextfilePath != "" || c.PushgatewayURL != ""
}

// Validate validates the metrics configuration
func (c MetricsConfig) Validate() error {
	if c.TextfilePath != "" && !strings.HasSuffix(c.TextfilePath, ".prom") {
		return fmt.Errorf("metrics textfile %q must have the .prom extension", c.TextfilePath)
	}
	if c.PushgatewayURL != "" {
		u, err := url.Parse(c.PushgatewayURL)
		if err != nil {
			return fmt.Errorf("invalid pushgateway url %q: %w", c.PushgatewayURL, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid pushgateway url %q: scheme and host are required", c.PushgatewayURL)
		}
	}
	return nil
}
