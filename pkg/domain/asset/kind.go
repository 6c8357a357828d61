package asset

import (
	"fmt"
)

// Kind is the type of a configuration asset.
type Kind int

const (
	KindTeam Kind = iota
	KindCollection
	KindMonitor
	KindNotificationPolicy
)

// Kinds lists every asset kind in sync order. Owners always come before the assets they own.
var Kinds = []Kind{KindTeam, KindCollection, KindMonitor, KindNotificationPolicy}

type kindInfo struct {
	name         string
	documentKind string
	resource     string
	singular     string
	plural       string
}

var kindInfos = map[Kind]kindInfo{
	KindTeam: {
		name:         "team",
		documentKind: "Team",
		resource:     "teams",
		singular:     "team",
		plural:       "teams",
	},
	KindCollection: {
		name:         "collection",
		documentKind: "Collection",
		resource:     "collections",
		singular:     "collection",
		plural:       "collections",
	},
	KindMonitor: {
		name:         "monitor",
		documentKind: "Monitor",
		resource:     "monitors",
		singular:     "monitor",
		plural:       "monitors",
	},
	KindNotificationPolicy: {
		name:         "notificationpolicy",
		documentKind: "NotificationPolicy",
		resource:     "notification-policies",
		singular:     "notification_policy",
		plural:       "notification_policies",
	},
}

// ParseKind returns the Kind matching a document kind such as "Monitor".
func ParseKind(documentKind string) (Kind, error) {
	for _, k := range Kinds {
		if kindInfos[k].documentKind == documentKind {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, documentKind)
}

// String returns the lowercase name used in reports, e.g. "notificationpolicy".
func (k Kind) String() string {
	if info, ok := kindInfos[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DocumentKind returns the kind as written in asset files.
func (k Kind) DocumentKind() string { return kindInfos[k].documentKind }

// Resource returns the REST path segment of the kind, e.g. "notification-policies".
func (k Kind) Resource() string { return kindInfos[k].resource }

// Singular returns the JSON envelope key of a single object, e.g. "notification_policy".
func (k Kind) Singular() string { return kindInfos[k].singular }

// Plural returns the JSON key of the object list in list responses.
func (k Kind) Plural() string { return kindInfos[k].plural }

// Tier is the position of the kind in sync order.
func (k Kind) Tier() int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return len(Kinds)
}

// Key identifies an asset: its kind and slug.
type Key struct {
	Kind Kind
	Slug string
}

// NewKey creates a new Key.
func NewKey(kind Kind, slug string) Key {
	return Key{Kind: kind, Slug: slug}
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool { return k == Key{} }

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.Slug)
}
