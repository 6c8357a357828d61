package loader

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/blang/semver/v4"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	v1 "github.com/giantswarm/chronosphere-sync/api/v1"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
)

// PackFile is the name of a pack manifest. Every directory holding one is a pack, nested
// directories belong to the nearest pack above them.
const PackFile = "pack.yaml"

// loadPack reads the pack manifest of dir. rel is dir relative to the asset root and names the
// manifest in errors. It returns nil when dir has no manifest.
func loadPack(fs billy.Filesystem, dir, rel string) (*v1.Pack, error) {
	file := path.Join(rel, PackFile)

	data, err := util.ReadFile(fs, filepath.Join(dir, PackFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &asset.ParseError{File: file, Document: -1, Err: errors.WithStack(err)}
	}

	var pack v1.Pack
	if err := yaml.UnmarshalStrict(data, &pack); err != nil {
		return nil, &asset.ParseError{File: file, Document: -1, Err: err}
	}

	if pack.Name == "" {
		return nil, &asset.ParseError{File: file, Document: -1, Err: ErrMissingPackName}
	}

	if _, err := semver.ParseTolerant(pack.Version); err != nil {
		return nil, &asset.ParseError{
			File:     file,
			Document: -1,
			Err:      fmt.Errorf("%w %q: %w", ErrInvalidPackVersion, pack.Version, err),
		}
	}

	return &pack, nil
}

// PackDir returns the directory of the pack file belongs to, relative to the root. The root pack
// is ".". ok is false when no pack holds file.
func (r *Result) PackDir(file string) (dir string, ok bool) {
	dir = path.Dir(file)
	for {
		if _, found := r.Packs[dir]; found {
			return dir, true
		}
		if dir == "." {
			return "", false
		}
		dir = path.Dir(dir)
	}
}

// PackOf returns the pack file belongs to, nil when there is none.
func (r *Result) PackOf(file string) *v1.Pack {
	dir, ok := r.PackDir(file)
	if !ok {
		return nil
	}
	return r.Packs[dir]
}
