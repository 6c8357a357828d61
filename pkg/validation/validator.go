// Package validation checks the referential integrity and field rules of a loaded asset set.
package validation

import (
	"context"
	"fmt"
	"slices"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

// Resolver lists the slugs of the assets of a kind that already exist remotely.
type Resolver interface {
	List(ctx context.Context, kind asset.Kind) ([]string, error)
}

// Validator validates asset sets. References that are not declared locally are looked up through
// the resolver when one is configured.
type Validator struct {
	resolver Resolver
}

// New creates a Validator. resolver may be nil, in which case references must resolve locally.
func New(resolver Resolver) *Validator {
	return &Validator{resolver: resolver}
}

// Validate checks every asset of set and moves it to Validated or Rejected on tracker.
// All errors are returned in one aggregate, nil means the set is valid.
func (v *Validator) Validate(ctx context.Context, set *asset.Set, tracker *asset.Tracker) error {
	logger := log.FromContext(ctx)

	remote := &remoteIndex{resolver: v.resolver, slugs: make(map[asset.Kind][]string)}

	var errs []error
	for _, a := range set.All() {
		if err := tracker.Transition(a.Key(), asset.StateValidating); err != nil {
			return err
		}

		assetErrs := validateFields(a)

		for _, ref := range a.References() {
			if ref.Target.Slug == "" || set.Contains(ref.Target) {
				continue
			}

			found, err := remote.contains(ctx, ref.Target)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", ref.Target, err)
			}
			if found {
				logger.V(1).Info("reference resolved remotely", "asset", a.Key().String(), "target", ref.Target.String())
				continue
			}

			assetErrs = append(assetErrs, &asset.UnresolvedReferenceError{
				Key:    a.Key(),
				Field:  ref.Field,
				Target: ref.Target,
			})
		}

		next := asset.StateValidated
		if len(assetErrs) > 0 {
			next = asset.StateRejected
			errs = append(errs, assetErrs...)
		}
		if err := tracker.Transition(a.Key(), next); err != nil {
			return err
		}
	}

	return utilerrors.NewAggregate(errs)
}

// CheckFields runs the field rules of every asset of set. It needs no resolver and leaves asset
// states untouched, so it can run before the API is contacted.
func CheckFields(set *asset.Set) error {
	var errs []error
	for _, a := range set.All() {
		errs = append(errs, validateFields(a)...)
	}
	return utilerrors.NewAggregate(errs)
}

// remoteIndex caches the remote slugs of each kind so a kind is listed at most once per run.
type remoteIndex struct {
	resolver Resolver
	slugs    map[asset.Kind][]string
}

func (r *remoteIndex) contains(ctx context.Context, key asset.Key) (bool, error) {
	if r.resolver == nil {
		return false, nil
	}

	slugs, ok := r.slugs[key.Kind]
	if !ok {
		var err error
		slugs, err = r.resolver.List(ctx, key.Kind)
		if err != nil {
			return false, err
		}
		r.slugs[key.Kind] = slugs
	}

	return slices.Contains(slugs, key.Slug), nil
}
