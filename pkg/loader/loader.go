// Package loader reads asset files from a directory tree into an asset.Set.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/giantswarm/chronosphere-sync/api/v1"
	"github.com/giantswarm/chronosphere-sync/internal/mapper"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

var extensions = []string{".yaml", ".yml", ".yaml.tmpl", ".yml.tmpl"}

// Result is the outcome of a successful load.
type Result struct {
	Set *asset.Set
	// Pack is the manifest at the root, nil when there is none.
	Pack *v1.Pack
	// Packs maps the directory of every pack manifest, relative to the root, to its pack.
	Packs map[string]*v1.Pack
	// Files lists every asset file read, relative to the root.
	Files []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithTenant sets the tenant exposed to asset templates.
func WithTenant(tenant string) Option {
	return func(l *Loader) {
		l.tenant = tenant
	}
}

// Loader walks a filesystem and maps every asset document to the domain model.
type Loader struct {
	fs     billy.Filesystem
	mapper *mapper.AssetMapper
	tenant string
}

// New creates a Loader reading from fs.
func New(fs billy.Filesystem, opts ...Option) *Loader {
	l := &Loader{
		fs:     fs,
		mapper: mapper.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load is a shortcut for New(fs, opts...).Load(ctx, root).
func Load(ctx context.Context, fs billy.Filesystem, root string, opts ...Option) (*Result, error) {
	return New(fs, opts...).Load(ctx, root)
}

// Load reads every asset file under root in lexical order. Hidden directories are skipped.
// Every parse and duplicate error of the tree is returned in a single aggregate.
func (l *Loader) Load(ctx context.Context, root string) (*Result, error) {
	logger := log.FromContext(ctx)

	info, err := l.fs.Stat(root)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}

	result := &Result{
		Set:   asset.NewSet(),
		Packs: make(map[string]*v1.Pack),
	}

	var errs []error
	walkErr := util.Walk(l.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}

			// Directories are visited before their files, so the pack is known when its assets are read.
			pack, err := loadPack(l.fs, path, rel)
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			if pack != nil {
				logger.Info("loading asset pack", "pack", pack.Name, "version", pack.Version, "dir", rel)
				result.Packs[rel] = pack
			}
			return nil
		}
		if info.Name() == PackFile || !isAssetFile(rel) {
			return nil
		}

		result.Files = append(result.Files, rel)
		data := TemplateData{Tenant: l.tenant, Pack: result.PackOf(rel)}
		errs = append(errs, l.loadFile(path, rel, data, result.Set)...)
		return nil
	})
	if walkErr != nil {
		return nil, errors.WithStack(walkErr)
	}

	if err := utilerrors.NewAggregate(errs); err != nil {
		return nil, err
	}
	result.Pack = result.Packs["."]

	logger.V(1).Info("loaded assets", "files", len(result.Files), "assets", result.Set.Len())
	return result, nil
}

// loadFile adds the assets of one file to set and returns the errors found in it.
func (l *Loader) loadFile(path, rel string, data TemplateData, set *asset.Set) []error {
	content, err := util.ReadFile(l.fs, path)
	if err != nil {
		return []error{&asset.ParseError{File: rel, Document: -1, Err: errors.WithStack(err)}}
	}

	if isTemplate(rel) {
		content, err = render(rel, content, data)
		if err != nil {
			return []error{&asset.ParseError{File: rel, Document: -1, Err: err}}
		}
	}

	docs, err := splitDocuments(content)
	if err != nil {
		return []error{&asset.ParseError{File: rel, Document: -1, Err: err}}
	}

	var errs []error
	for _, raw := range docs {
		if raw.err != nil {
			errs = append(errs, &asset.ParseError{File: rel, Document: raw.index, Err: raw.err})
			continue
		}

		a, err := l.mapper.FromDocument(rel, raw.doc)
		if err != nil {
			errs = append(errs, &asset.ParseError{File: rel, Document: raw.index, Err: err})
			continue
		}

		if err := set.Add(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func isAssetFile(path string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
