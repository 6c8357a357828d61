package app

import (
	"errors"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/config"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
	"github.com/giantswarm/chronosphere-sync/pkg/loader"
)

const (
	ExitOK         = 0
	ExitValidation = 1
	ExitSync       = 2
	ExitConfig     = 3
)

// ExitCode maps the error of a run to the process exit code. Configuration and authentication
// errors win over validation errors, which win over sync errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	code := ExitSync
	for _, e := range Errors(err) {
		switch {
		case isConfigError(e):
			return ExitConfig
		case asset.IsValidationError(e):
			code = ExitValidation
		}
	}
	return code
}

// Errors returns the leaf errors of err, expanding aggregates.
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	// A wrapped aggregate keeps its wrapper so errors.Is still matches the sentinel.
	if errors.Is(err, config.ErrInvalidConfig) {
		return []error{err}
	}
	var agg utilerrors.Aggregate
	if !errors.As(err, &agg) {
		return []error{err}
	}

	var errs []error
	for _, e := range utilerrors.Flatten(agg).Errors() {
		errs = append(errs, Errors(e)...)
	}
	return errs
}

func isConfigError(err error) bool {
	var authErr *asset.AuthError
	return errors.As(err, &authErr) ||
		chronosphere.IsUnauthorized(err) ||
		errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, loader.ErrRootNotFound) ||
		errors.Is(err, loader.ErrRootNotDirectory)
}
