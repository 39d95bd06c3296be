package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// editors write in bursts, a change settles before it is reloaded
const settle = 150 * time.Millisecond

// watch calls reload with the new content of chart each time it changes.
// The directory is watched so that editors replacing the file are seen.
func watch(ctx context.Context, lg *zap.Logger, chart string, reload func([]byte)) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}
	target, err := filepath.Abs(chart)
	if nil != err {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(target)); nil != err {
		w.Close()
		return nil, fmt.Errorf("unable to watch %s: %w", filepath.Dir(target), err)
	}

	go func() {
		timer := time.NewTimer(settle)
		timer.Stop()
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if p, err := filepath.Abs(ev.Name); nil != err || p != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					timer.Reset(settle)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				lg.Warn("watch error", zap.Error(err))
			case <-timer.C:
				content, err := os.ReadFile(target)
				if nil != err {
					lg.Warn("unable to reread chart", zap.String("path", target), zap.Error(err))
					continue
				}
				lg.Info("chart changed", zap.String("path", target))
				reload(content)
			}
		}
	}()
	return w, nil
}
