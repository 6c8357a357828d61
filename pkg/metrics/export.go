package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name of sync runs.
const PushJob = "chronosphere_sync"

// WriteTextfile writes the registry in the node exporter textfile format. The file is replaced atomically.
func WriteTextfile(path string) error {
	return WriteTextfileFrom(Registry, path)
}

func WriteTextfileFrom(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Push sends the registry to a Pushgateway, grouped by tenant.
func Push(ctx context.Context, url, tenant string) error {
	return PushFrom(ctx, Registry, url, tenant)
}

func PushFrom(ctx context.Context, g prometheus.Gatherer, url, tenant string) error {
	pusher := push.New(url, PushJob).Gatherer(g)
	if tenant != "" {
		pusher = pusher.Grouping("tenant", tenant)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
