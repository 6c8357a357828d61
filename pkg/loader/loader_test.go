package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

const root = "assets"

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()

	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, root+"/"+name, []byte(content), 0o644))
	}
	return fs
}

func team(slug string) string {
	return fmt.Sprintf("api_version: v1/config\nkind: Team\nspec:\n  slug: %s\n", slug)
}

func monitor(slug, collection string) string {
	return fmt.Sprintf(`api_version: v1/config
kind: Monitor
spec:
  slug: %s
  collection_slug: %s
  prometheus_query: sum(up)
  interval: 1m
`, slug, collection)
}

func flatten(t *testing.T, err error) []error {
	t.Helper()

	var agg utilerrors.Aggregate
	if errors.As(err, &agg) {
		return utilerrors.Flatten(agg).Errors()
	}
	return []error{err}
}

func TestLoad(t *testing.T) {
	fs := newFS(t, map[string]string{
		"teams.yaml": team("observability-team"),
		"licensing/collection.yml": `api_version: v1/config
kind: Collection
spec:
  slug: licensing
  team_slug: observability-team
`,
		"licensing/monitors.yaml": monitor("active-series", "licensing") + "---\n" + monitor("persisted-series", "licensing") + "---\n# trailing comment\n",
		"README.md":               "# not an asset",
		".git/config.yaml":        team("hidden"),
	})

	result, err := Load(context.Background(), fs, root)
	require.NoError(t, err)

	assert.Equal(t, []string{"licensing/collection.yml", "licensing/monitors.yaml", "teams.yaml"}, result.Files)
	assert.Nil(t, result.Pack)
	assert.Equal(t, map[asset.Kind]int{
		asset.KindTeam:       1,
		asset.KindCollection: 1,
		asset.KindMonitor:    2,
	}, result.Set.Counts())

	m, ok := result.Set.Get(asset.NewKey(asset.KindMonitor, "persisted-series"))
	require.True(t, ok)
	assert.Equal(t, "licensing/monitors.yaml", m.Source())
	assert.False(t, result.Set.Contains(asset.NewKey(asset.KindTeam, "hidden")))
}

func TestLoad_DuplicateAcrossFiles(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.yaml": monitor("active-series", "licensing"),
		"b.yaml": monitor("active-series", "licensing"),
	})

	_, err := Load(context.Background(), fs, root)
	require.Error(t, err)

	errs := flatten(t, err)
	require.Len(t, errs, 1)

	var dup *asset.DuplicateAssetError
	require.ErrorAs(t, errs[0], &dup)
	assert.Equal(t, asset.NewKey(asset.KindMonitor, "active-series"), dup.Key)
	assert.Equal(t, "a.yaml", dup.First)
	assert.Equal(t, "b.yaml", dup.Second)
}

func TestLoad_DuplicateInOneFile(t *testing.T) {
	fs := newFS(t, map[string]string{
		"teams.yaml": team("observability-team") + "---\n" + team("observability-team"),
	})

	_, err := Load(context.Background(), fs, root)

	var dup *asset.DuplicateAssetError
	require.ErrorAs(t, flatten(t, err)[0], &dup)
	assert.Equal(t, "teams.yaml", dup.First)
	assert.Equal(t, dup.First, dup.Second)
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		document int
		contains string
	}{
		{
			name:     "malformed yaml",
			content:  "api_version: v1/config\nkind: [Team\n",
			document: 0,
		},
		{
			name:     "unknown envelope field",
			content:  team("t") + "metadata: {}\n",
			document: 0,
			contains: "metadata",
		},
		{
			name:     "unknown kind in second document",
			content:  team("t") + "---\napi_version: v1/config\nkind: Dashboard\nspec:\n  slug: d\n",
			document: 1,
			contains: "unknown asset kind",
		},
		{
			name:     "wrong api version",
			content:  "api_version: v2\nkind: Team\nspec:\n  slug: t\n",
			document: 0,
			contains: "unsupported api_version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFS(t, map[string]string{"broken.yaml": tt.content})

			_, err := Load(context.Background(), fs, root)
			require.Error(t, err)

			var parseErr *asset.ParseError
			require.ErrorAs(t, flatten(t, err)[0], &parseErr)
			assert.Equal(t, "broken.yaml", parseErr.File)
			assert.Equal(t, tt.document, parseErr.Document)
			if tt.contains != "" {
				assert.Contains(t, parseErr.Error(), tt.contains)
			}
			assert.True(t, asset.IsValidationError(parseErr))
		})
	}
}

func TestLoad_ReportsEveryError(t *testing.T) {
	fs := newFS(t, map[string]string{
		"a.yaml": "kind: Team\n",
		"b.yaml": "api_version: v1/config\nkind: Nope\nspec: {slug: x}\n",
		"c.yaml": team("t") + "---\n" + team("t"),
	})

	_, err := Load(context.Background(), fs, root)
	assert.Len(t, flatten(t, err), 3)
}

func TestLoad_Root(t *testing.T) {
	fs := newFS(t, map[string]string{"teams.yaml": team("t")})

	_, err := Load(context.Background(), fs, "missing")
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, err = Load(context.Background(), fs, root+"/teams.yaml")
	assert.ErrorIs(t, err, ErrRootNotDirectory)
}

func TestLoad_Pack(t *testing.T) {
	tests := []struct {
		name        string
		pack        string
		expectedErr error
	}{
		{
			name: "valid",
			pack: "name: chronosphere-licensing\nversion: 1.2.0\nprerequisites:\n  - licensing dashboards enabled\n",
		},
		{
			name:        "invalid version",
			pack:        "name: chronosphere-licensing\nversion: latest\n",
			expectedErr: ErrInvalidPackVersion,
		},
		{
			name:        "missing name",
			pack:        "version: 1.0.0\n",
			expectedErr: ErrMissingPackName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFS(t, map[string]string{
				PackFile:     tt.pack,
				"teams.yaml": team("t"),
			})

			result, err := Load(context.Background(), fs, root)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)

				var parseErr *asset.ParseError
				require.ErrorAs(t, flatten(t, err)[0], &parseErr)
				assert.Equal(t, PackFile, parseErr.File)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result.Pack)
			assert.Equal(t, "chronosphere-licensing", result.Pack.Name)
			assert.Equal(t, []string{"teams.yaml"}, result.Files)

			dir, ok := result.PackDir("teams.yaml")
			assert.True(t, ok)
			assert.Equal(t, ".", dir)
		})
	}
}

func TestLoad_NestedPacks(t *testing.T) {
	kafkaCollection := `api_version: v1/config
kind: Collection
spec:
  slug: {{ .Pack.Name }}
  team_slug: observability-team
`
	fs := newFS(t, map[string]string{
		"teams.yaml":                                team("observability-team"),
		"templates/acme-redis/pack.yaml":            "name: acme-redis\nversion: 1.0.0\n",
		"templates/acme-redis/monitors.yaml":        monitor("redis-up", "acme-redis"),
		"templates/acme-kafka/pack.yaml":            "name: acme-kafka\nversion: 2.1.0\n",
		"templates/acme-kafka/collection.yaml.tmpl": kafkaCollection,
		"templates/acme-kafka/alerts/lag.yaml":      monitor("kafka-lag", "acme-kafka"),
	})

	result, err := Load(context.Background(), fs, root)
	require.NoError(t, err)

	assert.Nil(t, result.Pack)
	require.Len(t, result.Packs, 2)
	assert.Equal(t, "acme-redis", result.Packs["templates/acme-redis"].Name)
	assert.Equal(t, "2.1.0", result.Packs["templates/acme-kafka"].Version)
	assert.NotContains(t, result.Files, "templates/acme-redis/pack.yaml")
	assert.Equal(t, 4, result.Set.Len())

	assert.True(t, result.Set.Contains(asset.NewKey(asset.KindCollection, "acme-kafka")))

	tests := []struct {
		file   string
		dir    string
		inPack bool
	}{
		{file: "templates/acme-redis/monitors.yaml", dir: "templates/acme-redis", inPack: true},
		{file: "templates/acme-kafka/alerts/lag.yaml", dir: "templates/acme-kafka", inPack: true},
		{file: "teams.yaml", inPack: false},
	}
	for _, tt := range tests {
		dir, ok := result.PackDir(tt.file)
		assert.Equal(t, tt.inPack, ok, tt.file)
		assert.Equal(t, tt.dir, dir, tt.file)
	}
	assert.Equal(t, "acme-kafka", result.PackOf("templates/acme-kafka/alerts/lag.yaml").Name)
	assert.Nil(t, result.PackOf("teams.yaml"))
}

func TestLoad_NestedPackError(t *testing.T) {
	fs := newFS(t, map[string]string{
		"acme-redis/pack.yaml":     "name: acme-redis\nversion: next\n",
		"acme-redis/monitors.yaml": "api_version: v1/config\nkind: Monitor\n",
	})

	_, err := Load(context.Background(), fs, root)
	require.ErrorIs(t, err, ErrInvalidPackVersion)

	var parseErr *asset.ParseError
	require.ErrorAs(t, flatten(t, err)[0], &parseErr)
	assert.Equal(t, "acme-redis/pack.yaml", parseErr.File)
	assert.Len(t, flatten(t, err), 2, "asset errors of the pack are still reported")
}

func TestLoad_Templates(t *testing.T) {
	fs := newFS(t, map[string]string{
		PackFile: "name: licensing\nversion: 0.3.0\n",
		"teams.yaml.tmpl": `api_version: v1/config
kind: Team
spec:
  slug: {{ .Tenant | lower }}-team
  name: {{ printf "%s %s" .Tenant .Pack.Version | quote }}
`,
		"monitors.yaml": `api_version: v1/config
kind: Monitor
spec:
  slug: m
  collection_slug: c
  prometheus_query: up
  annotations:
    summary: "{{ $labels.instance }} is down"
`,
	})

	result, err := Load(context.Background(), fs, root, WithTenant("ACME"))
	require.NoError(t, err)

	tm, ok := result.Set.Get(asset.NewKey(asset.KindTeam, "acme-team"))
	require.True(t, ok)
	assert.Equal(t, "ACME 0.3.0", tm.Name())

	m, ok := result.Set.Get(asset.NewKey(asset.KindMonitor, "m"))
	require.True(t, ok)
	annotations, _ := m.Field("annotations")
	assert.Equal(t, "{{ $labels.instance }} is down", annotations.(map[string]any)["summary"])
}

func TestLoad_TemplateError(t *testing.T) {
	fs := newFS(t, map[string]string{
		"teams.yml.tmpl": "spec:\n  slug: {{ .Region }}\n",
	})

	_, err := Load(context.Background(), fs, root)

	var parseErr *asset.ParseError
	require.ErrorAs(t, flatten(t, err)[0], &parseErr)
	assert.Equal(t, -1, parseErr.Document)
	assert.True(t, strings.HasSuffix(parseErr.File, ".tmpl"))
}
