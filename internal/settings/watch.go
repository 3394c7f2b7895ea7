package settings

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"pkt.systems/tabherd/schema"
)

const watchDebounce = 100 * time.Millisecond

// Watch calls fn with the new settings whenever the file changes on disk,
// until ctx is done. The parent directory is watched because saves replace
// the file by rename.
func (s *Store) Watch(ctx context.Context, fn func(schema.Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Debug("settings watch started")
	}

	last, _, _ := s.load()
	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false
	base := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(watchDebounce)
		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			current, _, err := s.load()
			if err != nil {
				continue
			}
			if equal(current, last) {
				continue
			}
			last = current
			if s.log != nil {
				s.log.Debug("settings changed on disk", "debug", current.Debug, "default_group", current.DefaultTabGroupName)
			}
			fn(current)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if s.log != nil {
				s.log.Warn("settings watch error", "err", err)
			}
		}
	}
}

func equal(a, b schema.Settings) bool {
	return a.Debug == b.Debug &&
		a.DefaultTabGroupName == b.DefaultTabGroupName &&
		slices.Equal(a.AutoHideDisabledGroupIDs, b.AutoHideDisabledGroupIDs)
}
