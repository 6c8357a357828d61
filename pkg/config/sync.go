package config

import (
	"errors"
	"fmt"
	"slices"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/giantswarm/chronosphere-sync/pkg/report"
)

// SyncConfig represents the configuration of a sync run.
type SyncConfig struct {
	Root        string
	DryRun      bool
	Concurrency int
	// ChangedOnly restricts the sync to the assets declared in ChangedFiles, even when it is empty.
	ChangedOnly bool
	// ChangedFiles are relative to Root or start with it.
	ChangedFiles []string
	Output       string
}

// Validate validates the sync configuration
func (c SyncConfig) Validate() error {
	var errs []error
	if c.Root == "" {
		errs = append(errs, errors.New("root is required"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if !slices.Contains(report.Formats, c.Output) {
		errs = append(errs, fmt.Errorf("unsupported output format %q, expected one of %v", c.Output, report.Formats))
	}
	return utilerrors.NewAggregate(errs)
}
