package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/common/model"
	"sigs.k8s.io/yaml"

	v1 "github.com/giantswarm/chronosphere-sync/api/v1"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

// AssetMapper handles conversion from asset file documents to domain objects
type AssetMapper struct{}

// New creates a new mapper
func New() *AssetMapper {
	return &AssetMapper{}
}

// FromDocument converts a decoded document to a domain Asset. source is the file the document
// was read from and is kept for error reporting.
func (m *AssetMapper) FromDocument(source string, doc *v1.Document) (*asset.Asset, error) {
	if doc.APIVersion != v1.APIVersion {
		return nil, fmt.Errorf("%w %q, expected %q", ErrInvalidAPIVersion, doc.APIVersion, v1.APIVersion)
	}

	kind, err := asset.ParseKind(doc.Kind)
	if err != nil {
		return nil, err
	}

	if len(doc.Spec) == 0 || string(doc.Spec) == "null" {
		return nil, ErrMissingSpec
	}

	switch kind {
	case asset.KindTeam:
		return m.team(source, doc.Spec)
	case asset.KindCollection:
		return m.collection(source, doc.Spec)
	case asset.KindMonitor:
		return m.monitor(source, doc.Spec)
	case asset.KindNotificationPolicy:
		return m.notificationPolicy(source, doc.Spec)
	default:
		return nil, fmt.Errorf("%w: %s", asset.ErrUnknownKind, doc.Kind)
	}
}

func (m *AssetMapper) team(source string, raw []byte) (*asset.Asset, error) {
	var spec v1.TeamSpec
	if err := yaml.UnmarshalStrict(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode team spec: %w", err)
	}
	spec.Name = defaultName(spec.Name, spec.Slug)

	payload, err := toPayload(spec)
	if err != nil {
		return nil, err
	}

	return asset.New(asset.NewKey(asset.KindTeam, spec.Slug), spec.Name, source, nil, payload), nil
}

func (m *AssetMapper) collection(source string, raw []byte) (*asset.Asset, error) {
	var spec v1.CollectionSpec
	if err := yaml.UnmarshalStrict(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode collection spec: %w", err)
	}
	spec.Name = defaultName(spec.Name, spec.Slug)

	payload, err := toPayload(spec)
	if err != nil {
		return nil, err
	}

	refs := []asset.Reference{
		{Field: "team_slug", Target: asset.NewKey(asset.KindTeam, spec.TeamSlug), Owner: true},
	}
	if spec.NotificationPolicySlug != "" {
		refs = append(refs, asset.Reference{
			Field:  "notification_policy_slug",
			Target: asset.NewKey(asset.KindNotificationPolicy, spec.NotificationPolicySlug),
		})
	}

	return asset.New(asset.NewKey(asset.KindCollection, spec.Slug), spec.Name, source, refs, payload), nil
}

func (m *AssetMapper) monitor(source string, raw []byte) (*asset.Asset, error) {
	var spec v1.MonitorSpec
	if err := yaml.UnmarshalStrict(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode monitor spec: %w", err)
	}
	spec.Name = defaultName(spec.Name, spec.Slug)

	// The API takes the interval in seconds, files use Prometheus durations.
	interval := spec.Interval
	spec.Interval = ""

	payload, err := toPayload(spec)
	if err != nil {
		return nil, err
	}

	if interval != "" {
		d, err := model.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidInterval, interval, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrNonPositiveInterval, interval)
		}
		if time.Duration(d) < time.Second || time.Duration(d)%time.Second != 0 {
			return nil, fmt.Errorf("%w %q: must be a whole number of seconds", ErrInvalidInterval, interval)
		}
		payload["interval_secs"] = int64(time.Duration(d) / time.Second)
	}

	refs := []asset.Reference{
		{Field: "collection_slug", Target: asset.NewKey(asset.KindCollection, spec.CollectionSlug), Owner: true},
	}
	if spec.NotificationPolicySlug != "" {
		refs = append(refs, asset.Reference{
			Field:  "notification_policy_slug",
			Target: asset.NewKey(asset.KindNotificationPolicy, spec.NotificationPolicySlug),
		})
	}

	return asset.New(asset.NewKey(asset.KindMonitor, spec.Slug), spec.Name, source, refs, payload), nil
}

func (m *AssetMapper) notificationPolicy(source string, raw []byte) (*asset.Asset, error) {
	var spec v1.NotificationPolicySpec
	if err := yaml.UnmarshalStrict(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to decode notification policy spec: %w", err)
	}
	spec.Name = defaultName(spec.Name, spec.Slug)

	payload, err := toPayload(spec)
	if err != nil {
		return nil, err
	}

	var refs []asset.Reference
	if spec.TeamSlug != "" {
		refs = append(refs, asset.Reference{
			Field:  "team_slug",
			Target: asset.NewKey(asset.KindTeam, spec.TeamSlug),
		})
	}

	return asset.New(asset.NewKey(asset.KindNotificationPolicy, spec.Slug), spec.Name, source, refs, payload), nil
}

// toPayload converts a spec to the generic JSON object sent to the API.
func toPayload(spec any) (map[string]any, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode spec: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode spec: %w", err)
	}
	return payload, nil
}

func defaultName(name, slug string) string {
	if name == "" {
		return slug
	}
	return name
}
