package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when no artifact exists for a contract name.
var ErrNotFound = errors.New("artifact not found")

// Resolver resolves contract names to artifacts.
//
// Implementations must return the same *Artifact for repeated lookups of a
// name so that bytecode rewritten by the linker stays linked.
type Resolver interface {
	Resolve(name string) (*Artifact, error)
}

// DirResolver loads artifacts from a build directory containing one
// <Name>.json file per contract. Foundry's <Source>.sol/<Name>.json layout is
// searched as well.
//
// Thread-safety: safe for concurrent use via internal mutex.
type DirResolver struct {
	dir string

	mu    sync.Mutex
	cache map[string]*Artifact
}

// NewDirResolver creates a resolver rooted at dir.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{
		dir:   dir,
		cache: make(map[string]*Artifact),
	}
}

// Dir returns the build directory.
func (r *DirResolver) Dir() string {
	return r.dir
}

// Resolve loads the named artifact, caching it for later calls.
func (r *DirResolver) Resolve(name string) (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.cache[name]; ok {
		return a, nil
	}

	path, err := r.find(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	a, err := Parse(data, name)
	if err != nil {
		return nil, err
	}
	if a.Name != name {
		return nil, fmt.Errorf("artifact %s declares contract %q, want %q", path, a.Name, name)
	}

	r.cache[name] = a
	return a, nil
}

func (r *DirResolver) find(name string) (string, error) {
	candidates := []string{
		filepath.Join(r.dir, name+".json"),
		filepath.Join(r.dir, name+".sol", name+".json"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	// Foundry nests artifacts under their source file, which need not share
	// the contract's name.
	matches, err := filepath.Glob(filepath.Join(r.dir, "*.sol", name+".json"))
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", r.dir, err)
	}
	if len(matches) > 0 {
		sort.Strings(matches)
		return matches[0], nil
	}

	return "", fmt.Errorf("%w: %s in %s", ErrNotFound, name, r.dir)
}

// Names lists the contract names available in the build directory, sorted.
func (r *DirResolver) Names() ([]string, error) {
	var names []string
	err := filepath.WalkDir(r.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		names = append(names, strings.TrimSuffix(d.Name(), ".json"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts in %s: %w", r.dir, err)
	}
	sort.Strings(names)
	return names, nil
}
