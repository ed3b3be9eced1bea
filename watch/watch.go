/*
DESCRIPTION
  watch.go reloads the persisted config file when it changes on disk
  outside this process, so an operator editing keystone.conf directly
  (or a config-management tool pushing a new one) takes effect without
  a restart.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package watch reloads the on-disk config file on external change.
package watch

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/pipeline/config"
)

// Watcher reloads cfg.ConfigPath whenever it changes and invokes onChange
// with the freshly loaded Config.
type Watcher struct {
	fsw *fsnotify.Watcher
	log logging.Logger
}

// New starts watching cfg's directory (not the file itself: editors that
// write-then-rename produce a new inode, which a direct file watch would
// silently stop following) and calls onChange after every write or create
// event targeting cfg.ConfigPath.
func New(cfg *config.Config, log logging.Logger, onChange func(*config.Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(cfg.ConfigPath)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, log: log}
	go w.run(cfg.ConfigPath, onChange)
	return w, nil
}

func (w *Watcher) run(path string, onChange func(*config.Config)) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			updated, err := config.Load(path)
			if err != nil {
				w.log.Warning(pkg+"reload failed", "error", err.Error())
				continue
			}
			w.log.Info(pkg + "reloaded config from disk")
			onChange(updated)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warning(pkg+"watch error", "error", err.Error())
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }

const pkg = "watch: "
