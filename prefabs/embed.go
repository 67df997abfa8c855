package prefabs

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

//go:embed scripts/*.tengo
var ScriptsFS embed.FS

//go:embed *.yaml
var PrefabsFS embed.FS

var (
	dirMu sync.RWMutex
	dir   = "prefabs"
)

// SetDir changes the on-disk directory whose files override the embedded
// prefabs. An empty dir disables the override.
func SetDir(d string) {
	dirMu.Lock()
	dir = d
	dirMu.Unlock()
}

// Dir returns the on-disk override directory.
func Dir() string {
	dirMu.RLock()
	defer dirMu.RUnlock()
	return dir
}

func Load(name string) ([]byte, error) {
	clean := cleanPrefabPath(name)
	if p, ok := diskPrefabPath(clean); ok {
		if data, err := os.ReadFile(p); err == nil {
			return data, nil
		}
	}
	return PrefabsFS.ReadFile(clean)
}

func LoadScript(name string) ([]byte, error) {
	clean := cleanScriptPath(name)
	if p, ok := diskPrefabPath(clean); ok {
		if data, err := os.ReadFile(p); err == nil {
			return data, nil
		}
	}
	return ScriptsFS.ReadFile(clean)
}

func ModTime(name string) (time.Time, bool) {
	p, ok := diskPrefabPath(cleanPrefabPath(name))
	if !ok {
		return time.Time{}, false
	}
	info, err := os.Stat(p)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func cleanPrefabPath(path string) string {
	if path == "" {
		return ""
	}
	s := filepath.ToSlash(path)
	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		return after
	}
	return s
}

func cleanScriptPath(path string) string {
	if path == "" {
		return ""
	}

	s := filepath.ToSlash(path)

	if after, ok := strings.CutPrefix(s, "prefabs/scripts/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "prefabs/"); ok {
		s = after
	}

	if after, ok := strings.CutPrefix(s, "scripts/"); ok {
		s = after
	}

	return fmt.Sprintf("scripts/%s", s)
}

func diskPrefabPath(clean string) (string, bool) {
	d := Dir()
	if d == "" || clean == "" {
		return "", false
	}
	return filepath.Join(d, filepath.FromSlash(clean)), true
}
