package plugin

import (
	"errors"
	"io/fs"
	"os"
	"sort"
)

// SearchPath is one discovery root. Roots are scanned in slice order:
// the instance-local plugins directory first, then configured extra
// paths, then the bundled descriptors, so an instance can shadow a
// bundled plugin of the same name.
type SearchPath struct {
	FS     fs.FS
	Origin string // display path for listings and logs
	// InstanceLocal marks the instance plugins directory.
	InstanceLocal bool
}

// DirSearchPath returns a search path over a directory on disk.
func DirSearchPath(dir string, instanceLocal bool) SearchPath {
	return SearchPath{FS: os.DirFS(dir), Origin: dir, InstanceLocal: instanceLocal}
}

// Descriptor is one discovered plugin: its name (the directory name),
// parsed metadata, and where it was found.
type Descriptor struct {
	Name          string
	Origin        string
	InstanceLocal bool
	Meta          Metadata
}

// Discover scans the search paths for plugin descriptors. Order is
// search-path priority first, then lexical name within one path; the
// first descriptor found for a name wins. Roots that do not exist are
// skipped. A directory whose descriptor fails to parse is skipped with
// the error reported in the result.
func Discover(paths []SearchPath) ([]Descriptor, []error) {
	var (
		found       = make(map[string]bool)
		descriptors []Descriptor
		problems    []error
	)
	for _, sp := range paths {
		if sp.FS == nil {
			continue
		}
		entries, err := fs.ReadDir(sp.FS, ".")
		if err != nil {
			// missing roots are expected (fresh instances have no
			// plugins directory until something installs into it)
			continue
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() && ValidName(entry.Name()) {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			if found[name] {
				continue
			}
			meta, err := readMetadata(sp.FS, name)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					// a plain directory, not a plugin
					continue
				}
				problems = append(problems, err)
				continue
			}
			found[name] = true
			descriptors = append(descriptors, Descriptor{
				Name:          name,
				Origin:        sp.Origin,
				InstanceLocal: sp.InstanceLocal,
				Meta:          meta,
			})
		}
	}
	return descriptors, problems
}
