package sim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/milk9111/companion/prefabs"
)

var ErrNoPrefabDir = errors.New("sim: prefab dir not found")

// WatchPrefabs rebuilds r whenever a spec or script under dir changes, until
// ctx is done. Failed reloads keep the previous simulation running.
func WatchPrefabs(ctx context.Context, r *Runner, dir string) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ErrNoPrefabDir
	}
	dirs := []string{dir}
	if info, err := os.Stat(filepath.Join(dir, "scripts")); err == nil && info.IsDir() {
		dirs = append(dirs, filepath.Join(dir, "scripts"))
	}

	w, err := prefabs.NewWatcher(dirs...)
	if err != nil {
		return err
	}

	logger := r.logger.With("component", "watcher")
	seen := make(map[string]time.Time)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-w.Events:
				if !ok {
					return
				}
				rel, err := filepath.Rel(dir, path)
				if err != nil {
					rel = filepath.Base(path)
				}
				if mt, ok := prefabs.ModTime(rel); ok {
					if mt.Equal(seen[rel]) {
						continue
					}
					seen[rel] = mt
				}
				logger.Info("prefab changed; reloading", "path", rel)
				if err := r.Reload(); err == nil {
					logger.Info("reload complete", "companions", len(r.IDs()))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", "err", err)
			}
		}
	}()
	logger.Info("watching prefabs", "dirs", dirs)
	return nil
}
