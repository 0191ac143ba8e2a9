package taglib

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/Drolfothesgnir/pagec/diag"
)

const (
	// TLDScheme prefixes uris naming a descriptor file by path, as used in XML syntax.
	TLDScheme = "urn:jsptld:"

	// TagDirScheme prefixes uris naming a directory of tag files.
	TagDirScheme = "urn:jsptagdir:"
)

// Resolver returns the tag library bound to a namespace uri.
// Not finding a library is reported with [ErrLibraryNotFound].
type Resolver interface {
	Resolve(uri string) (*Library, error)
}

// Registry is a read-mostly Resolver of registered libraries. Descriptor files and tag
// directories referenced by path are loaded from the registry's file system on first use.
type Registry struct {
	mu     sync.RWMutex
	libs   map[string]*Library
	infos  map[string]ExtraInfo
	checks map[string]ValidateFunc
	fsys   fs.FS
}

// NewRegistry creates a Registry. fsys may be nil, in which case only registered libraries resolve.
func NewRegistry(fsys fs.FS) *Registry {
	return &Registry{
		libs:   map[string]*Library{},
		infos:  map[string]ExtraInfo{},
		checks: map[string]ValidateFunc{},
		fsys:   fsys,
	}
}

// RegisterExtraInfo makes fn available to descriptors naming class as their tei-class.
// It must be called before the descriptors using it are registered.
func (r *Registry) RegisterExtraInfo(class string, fn ExtraInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos[class] = fn
}

// RegisterValidator attaches fn to every tag whose handler is typeName of importPath.
// It must be called before the descriptors using it are registered.
func (r *Registry) RegisterValidator(importPath, typeName string, fn ValidateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[importPath+"."+typeName] = fn
}

// Register adds lib under its uri.
func (r *Registry) Register(lib *Library) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(lib.URI, lib)
}

func (r *Registry) register(uri string, lib *Library) error {
	if uri == "" {
		return diag.NewConfigError(diag.IssueBadDescriptor, fmt.Errorf("library %q has no uri", lib.ShortName))
	}

	if _, ok := r.libs[uri]; ok {
		return diag.NewConfigError(diag.IssueDuplicateTaglib, fmt.Errorf("tag library %q already registered", uri))
	}

	for _, d := range lib.Tags {
		if d.ExtraInfoClass != "" && d.ExtraInfo == nil {
			fn, ok := r.infos[d.ExtraInfoClass]
			if !ok {
				return diag.NewConfigError(diag.IssueBadDescriptor,
					fmt.Errorf("tag %q: unknown tei-class %q", d.Name, d.ExtraInfoClass))
			}
			d.ExtraInfo = fn
		}

		if d.Validate == nil {
			d.Validate = r.checks[d.Import+"."+d.TypeName]
		}
	}

	r.libs[uri] = lib
	return nil
}

// Resolve implements [Resolver].
func (r *Registry) Resolve(uri string) (*Library, error) {
	r.mu.RLock()
	lib, ok := r.libs[uri]
	r.mu.RUnlock()
	if ok {
		return lib, nil
	}

	if r.fsys == nil {
		return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, uri)
	}

	switch {
	case strings.HasPrefix(uri, TagDirScheme):
		lib, err := r.loadTagDir(strings.TrimPrefix(uri, TagDirScheme))
		if err != nil {
			return nil, err
		}
		return r.store(uri, lib)

	case strings.HasPrefix(uri, TLDScheme), strings.HasSuffix(uri, ".tld"):
		lib, err := r.loadTLD(strings.TrimPrefix(uri, TLDScheme))
		if err != nil {
			return nil, err
		}
		return r.store(uri, lib)
	}

	return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, uri)
}

// store registers a library loaded on demand, keeping the first one if another goroutine won.
func (r *Registry) store(uri string, lib *Library) (*Library, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.libs[uri]; ok {
		return existing, nil
	}

	if err := r.register(uri, lib); err != nil {
		return nil, err
	}
	return lib, nil
}

func (r *Registry) loadTLD(p string) (*Library, error) {
	f, err := r.fsys.Open(fsPath(p))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLibraryNotFound, p, err)
	}
	defer f.Close()

	return ParseTLD(f)
}

// loadTagDir builds a library from the .tag and .tagx files of a directory.
func (r *Registry) loadTagDir(dir string) (*Library, error) {
	entries, err := fs.ReadDir(r.fsys, fsPath(dir))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLibraryNotFound, dir, err)
	}

	lib := &Library{
		URI:       TagDirScheme + dir,
		ShortName: path.Base(dir),
		Tags:      map[string]*Descriptor{},
		Functions: map[string]Function{},
		TagFiles:  map[string]string{},
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		ext := path.Ext(name)
		if ext != ".tag" && ext != ".tagx" {
			continue
		}

		lib.TagFiles[strings.TrimSuffix(name, ext)] = path.Join(dir, name)
	}

	return lib, nil
}

// LoadDir registers every descriptor file found under dir in fsys.
func (r *Registry) LoadDir(fsys fs.FS, dir string) error {
	return fs.WalkDir(fsys, fsPath(dir), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".tld" {
			return nil
		}

		f, err := fsys.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		lib, err := ParseTLD(f)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		if lib.URI == "" {
			lib.URI = "/" + p
		}
		return r.Register(lib)
	})
}

// fsPath converts a page-root absolute path into an fs.FS path.
func fsPath(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "."
	}
	return p
}
