package config

import (
	"fmt"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// TenantValidator validates tenant names, the subdomain of the tenant API URL.
type TenantValidator struct {
	// List of forbidden tenant values that are valid DNS labels but never a tenant
	ForbiddenValues []string
}

// NewTenantValidator creates a new TenantValidator with default forbidden values.
func NewTenantValidator() *TenantValidator {
	return &TenantValidator{
		ForbiddenValues: []string{"www", "api"},
	}
}

// ValidateTenantName validates a single tenant name.
func (v *TenantValidator) ValidateTenantName(tenantName string) error {
	if msgs := validation.IsDNS1123Label(tenantName); len(msgs) > 0 {
		return fmt.Errorf("invalid tenant %q: %s", tenantName, strings.Join(msgs, ", "))
	}

	if slices.Contains(v.ForbiddenValues, tenantName) {
		return fmt.Errorf("tenant %q is not allowed. Forbidden values: %v", tenantName, v.ForbiddenValues)
	}

	return nil
}
