/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package v1 defines the on-disk format of Chronosphere configuration asset files.
package v1

import (
	"encoding/json"
)

// APIVersion is the only api_version accepted in asset documents.
const APIVersion = "v1/config"

// Document is a single YAML document of an asset file.
type Document struct {
	// APIVersion must be "v1/config".
	APIVersion string `json:"api_version"`

	// Kind is one of Team, Collection, Monitor or NotificationPolicy.
	Kind string `json:"kind"`

	// Spec holds the kind-specific definition, decoded later by the mapper.
	Spec json.RawMessage `json:"spec"`
}

// TeamSpec defines a team, the owner of collections.
type TeamSpec struct {
	// Slug is the unique identifier of the team.
	Slug string `json:"slug"`

	// Name is the displayed name. Defaults to the slug.
	// +optional
	Name string `json:"name,omitempty"`

	// +optional
	Description string `json:"description,omitempty"`

	// UserEmails lists the members of the team.
	// +optional
	UserEmails []string `json:"user_emails,omitempty"`
}

// CollectionSpec defines a collection of monitors owned by a team.
type CollectionSpec struct {
	Slug string `json:"slug"`

	// +optional
	Name string `json:"name,omitempty"`

	// TeamSlug is the owning team.
	TeamSlug string `json:"team_slug"`

	// +optional
	Description string `json:"description,omitempty"`

	// NotificationPolicySlug is the default policy of the collection's monitors.
	// +optional
	NotificationPolicySlug string `json:"notification_policy_slug,omitempty"`
}

// MonitorSpec defines an alerting rule bound to a collection.
type MonitorSpec struct {
	Slug string `json:"slug"`

	// +optional
	Name string `json:"name,omitempty"`

	// CollectionSlug is the owning collection.
	CollectionSlug string `json:"collection_slug"`

	// NotificationPolicySlug overrides the collection's notification policy.
	// +optional
	NotificationPolicySlug string `json:"notification_policy_slug,omitempty"`

	// PrometheusQuery is passed to the platform as is.
	PrometheusQuery string `json:"prometheus_query"`

	// Interval is the evaluation interval as a Prometheus duration, e.g. "1m".
	// +optional
	Interval string `json:"interval,omitempty"`

	// +optional
	Labels map[string]string `json:"labels,omitempty"`

	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`

	// SignalGrouping is passed to the platform as is.
	// +optional
	SignalGrouping json.RawMessage `json:"signal_grouping,omitempty"`

	// SeriesConditions is passed to the platform as is.
	// +optional
	SeriesConditions json.RawMessage `json:"series_conditions,omitempty"`
}

// NotificationPolicySpec defines a routing rule set referenced by monitors.
type NotificationPolicySpec struct {
	Slug string `json:"slug"`

	// +optional
	Name string `json:"name,omitempty"`

	// TeamSlug is the owning team.
	// +optional
	TeamSlug string `json:"team_slug,omitempty"`

	// Routes is passed to the platform as is.
	// +optional
	Routes json.RawMessage `json:"routes,omitempty"`
}

// Pack describes a directory of assets shipped together. It is read from pack.yaml.
type Pack struct {
	Name string `json:"name"`

	// Version is a semantic version.
	Version string `json:"version"`

	// +optional
	Description string `json:"description,omitempty"`

	// Prerequisites lists what must be in place on the tenant before the pack is synced.
	// +optional
	Prerequisites []string `json:"prerequisites,omitempty"`
}
