package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/common/model"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

// validateFields checks the field rules of a single asset.
func validateFields(a *asset.Asset) []error {
	var errs []error

	for _, msg := range validation.IsDNS1123Subdomain(a.Slug()) {
		errs = append(errs, invalid(a, "slug", msg))
	}

	for _, ref := range a.References() {
		if ref.Owner && ref.Target.Slug == "" {
			errs = append(errs, invalid(a, ref.Field, "is required"))
		}
	}

	if a.Kind() == asset.KindMonitor {
		errs = append(errs, validateMonitor(a)...)
	}

	return errs
}

func validateMonitor(a *asset.Asset) []error {
	var errs []error

	if strings.TrimSpace(a.StringField("prometheus_query")) == "" {
		errs = append(errs, invalid(a, "prometheus_query", "is required"))
	}

	labels, _ := a.Field("labels")
	if labels, ok := labels.(map[string]any); ok {
		names := make([]string, 0, len(labels))
		for name := range labels {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			if !model.LabelNameRE.MatchString(name) {
				errs = append(errs, invalid(a, "labels", fmt.Sprintf("invalid label name %q", name)))
			}
		}
	}

	return errs
}

func invalid(a *asset.Asset, field, reason string) error {
	return &asset.InvalidAssetError{Key: a.Key(), Field: field, Reason: reason}
}
