// Package report renders the summary of a sync run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"text/tabwriter"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
	"github.com/giantswarm/chronosphere-sync/pkg/syncer"
)

// Status is the reported state of an asset.
type Status string

const (
	StatusAvailable Status = "available"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

var statuses = []Status{StatusAvailable, StatusSkipped, StatusFailed}

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the supported output formats.
var Formats = []string{FormatTable, FormatJSON, FormatYAML}

// Row is one line of the summary: how many assets of a kind ended in a status.
type Row struct {
	Kind   asset.Kind
	Status Status
	Count  int
}

// Failure names a failed asset and its error.
type Failure struct {
	Asset string `json:"asset"`
	Error string `json:"error"`
}

type summary struct {
	DryRun   bool         `json:"dry_run"`
	Rows     []summaryRow `json:"rows"`
	Failures []Failure    `json:"failures,omitempty"`
}

type summaryRow struct {
	AssetType string `json:"asset_type"`
	Status    Status `json:"status"`
	Count     int    `json:"count"`
}

// StatusOf maps a sync action to its reported status.
func StatusOf(action syncer.Action) Status {
	switch action {
	case syncer.ActionCreated, syncer.ActionUpdated, syncer.ActionUnchanged:
		return StatusAvailable
	case syncer.ActionFailed:
		return StatusFailed
	default:
		return StatusSkipped
	}
}

// Rows yields the summary rows of result ordered by kind tier then status. Empty rows are omitted.
func Rows(result *syncer.Result) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		counts := make(map[asset.Kind]map[Status]int)
		for _, o := range result.Outcomes {
			if counts[o.Key.Kind] == nil {
				counts[o.Key.Kind] = make(map[Status]int)
			}
			counts[o.Key.Kind][StatusOf(o.Action)]++
		}

		for _, kind := range asset.Kinds {
			for _, status := range statuses {
				n := counts[kind][status]
				if n == 0 {
					continue
				}
				if !yield(Row{Kind: kind, Status: status, Count: n}) {
					return
				}
			}
		}
	}
}

// Failures returns the failed assets of result in sync order.
func Failures(result *syncer.Result) []Failure {
	var failures []Failure
	for _, o := range result.Failed() {
		failures = append(failures, Failure{Asset: o.Key.String(), Error: o.Err.Error()})
	}
	return failures
}

// Print writes the summary of result to w in the given format.
func Print(w io.Writer, format string, result *syncer.Result) error {
	switch format {
	case FormatTable, "":
		return printTable(w, result)
	case FormatJSON:
		data, err := json.MarshalIndent(newSummary(result), "", "  ")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return errors.WithStack(err)
	case FormatYAML:
		data, err := yaml.Marshal(newSummary(result))
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = w.Write(data)
		return errors.WithStack(err)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func printTable(w io.Writer, result *syncer.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET TYPE\tSTATUS\tCOUNT")
	for row := range Rows(result) {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", row.Kind, row.Status, row.Count)
	}
	if err := tw.Flush(); err != nil {
		return errors.WithStack(err)
	}

	failures := Failures(result)
	if len(failures) > 0 {
		fmt.Fprintln(w)
	}
	for _, f := range failures {
		// Sync errors already name the asset.
		if _, err := fmt.Fprintf(w, "error: %s\n", f.Error); err != nil {
			return errors.WithStack(err)
		}
	}

	if result.DryRun {
		_, err := fmt.Fprintln(w, "\ndry run: no changes were sent")
		return errors.WithStack(err)
	}
	return nil
}

func newSummary(result *syncer.Result) summary {
	s := summary{DryRun: result.DryRun, Rows: []summaryRow{}, Failures: Failures(result)}
	for row := range Rows(result) {
		s.Rows = append(s.Rows, summaryRow{AssetType: row.Kind.String(), Status: row.Status, Count: row.Count})
	}
	return s
}
