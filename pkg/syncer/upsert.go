package syncer

import (
	"context"
	"errors"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

// upsert makes the remote object of an asset match its declaration. It never deletes.
func (s *Service) upsert(ctx context.Context, a *asset.Asset) (Action, error) {
	logger := log.FromContext(ctx).WithValues("asset", a.Key().String())
	local := a.Payload()

	remote, err := s.api.Get(ctx, a.Kind(), a.Slug())
	if err != nil {
		if !chronosphere.IsNotFound(err) {
			return ActionFailed, classify(a.Key(), err)
		}

		logger.Info("creating asset")
		_, err = s.api.Create(ctx, a.Kind(), local)
		if err == nil {
			return ActionCreated, nil
		}
		if !chronosphere.IsConflict(err) {
			return ActionFailed, classify(a.Key(), err)
		}

		// Created since the lookup, e.g. by a concurrent run.
		logger.Info("asset already exists, updating")
		if _, err := s.api.Update(ctx, a.Kind(), a.Slug(), local); err != nil {
			return ActionFailed, classify(a.Key(), err)
		}
		return ActionUpdated, nil
	}

	patch, err := diff(remote, local)
	if err != nil {
		return ActionFailed, err
	}
	if isEmptyPatch(patch) {
		logger.V(1).Info("asset is up to date")
		return ActionUnchanged, nil
	}

	logger.Info("updating asset")
	logger.V(1).Info("asset differs from remote", "patch", string(patch))
	if _, err := s.api.Update(ctx, a.Kind(), a.Slug(), local); err != nil {
		return ActionFailed, classify(a.Key(), err)
	}
	return ActionUpdated, nil
}

// classify maps a client error to the sync error taxonomy.
func classify(key asset.Key, err error) error {
	var apiErr chronosphere.APIError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &asset.TransientSyncError{Key: key, Err: err}
	case chronosphere.IsUnauthorized(err):
		return &asset.AuthError{Key: key, Err: err}
	case chronosphere.IsRetryable(err):
		return &asset.TransientSyncError{Key: key, Err: err}
	case errors.As(err, &apiErr):
		return &asset.RejectedSyncError{Key: key, Err: err}
	default:
		return &asset.TransientSyncError{Key: key, Err: err}
	}
}
