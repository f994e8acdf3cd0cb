package node

import (
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
)

// ExtensionSuffix is the file suffix of loadable extensions.
const ExtensionSuffix = ".so"

// ExtensionLoader makes the code of one extension file available to the
// process, e.g. analyzers or custom facet handlers registering themselves
// from init functions.
type ExtensionLoader interface {
	Load(path string) error
}

// PluginLoader loads extensions with the plugin package.
type PluginLoader struct{}

// Load implements ExtensionLoader.
func (PluginLoader) Load(path string) error {
	_, err := plugin.Open(path)
	return err
}

// loadExtensions hands every extension file in dir to l. Failures are logged
// per file and never stop the scan. It returns the files that loaded.
func loadExtensions(dir string, l ExtensionLoader, log *slog.Logger) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn("cannot read extension directory", "dir", dir, "error", err)
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ExtensionSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var loaded []string
	for _, name := range names {
		path, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			log.Warn("bad extension path", "file", name, "error", err)
			continue
		}
		if err := l.Load(path); err != nil {
			log.Warn("cannot load extension", "path", path, "error", err)
			continue
		}
		log.Info("loaded extension", "path", path)
		loaded = append(loaded, path)
	}
	return loaded
}
