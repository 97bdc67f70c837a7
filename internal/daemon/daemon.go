// Package daemon runs backup cycles on a fixed interval and reloads
// the configuration when its file changes, so a running daemon picks up
// policy edits without a restart.
package daemon

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Daemon schedules backup cycles. The cycle and reload callbacks are
// supplied by the caller; the daemon owns only the timing and the
// config file watch.
type Daemon struct {
	interval   time.Duration
	configPath string
	clock      clockwork.Clock
	log        *logrus.Entry

	cycle  func() error
	reload func() error

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a Daemon that calls cycle every interval and reload when
// the file at configPath is rewritten.
func New(interval time.Duration, configPath string, cycle, reload func() error, log *logrus.Entry) (*Daemon, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	if cycle == nil {
		return nil, fmt.Errorf("cycle callback cannot be nil")
	}
	return &Daemon{
		interval:   interval,
		configPath: configPath,
		clock:      clockwork.NewRealClock(),
		log:        log,
		cycle:      cycle,
		reload:     reload,
		stopCh:     make(chan struct{}),
	}, nil
}

// SetClock replaces the wall clock (useful for testing).
func (d *Daemon) SetClock(clock clockwork.Clock) {
	d.clock = clock
}

// Start launches the cycle scheduler and the config file watch. It
// returns immediately; use Stop to shut down.
func (d *Daemon) Start() error {
	if d.configPath != "" && d.reload != nil {
		// Watch the directory, not the file: editors replace config
		// files, which drops a watch set on the file itself.
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		if err := watcher.Add(filepath.Dir(d.configPath)); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch config directory: %w", err)
		}
		d.watcher = watcher

		d.wg.Add(1)
		go d.runConfigWatch()
	}

	d.wg.Add(1)
	go d.runScheduler()

	return nil
}

// runScheduler executes one cycle per interval tick until stopped.
func (d *Daemon) runScheduler() {
	defer d.wg.Done()

	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := d.cycle(); err != nil {
				d.log.WithError(err).Error("backup cycle failed")
			}
		case <-d.stopCh:
			return
		}
	}
}

func (d *Daemon) runConfigWatch() {
	defer d.wg.Done()

	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if event.Name != d.configPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			d.log.WithField("config", d.configPath).Info("configuration changed, reloading")
			if err := d.reload(); err != nil {
				d.log.WithError(err).Error("configuration reload failed, keeping previous configuration")
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.WithError(err).Error("config watch error")
		case <-d.stopCh:
			return
		}
	}
}

// Stop shuts the daemon down and waits for in-flight work to finish.
func (d *Daemon) Stop() error {
	close(d.stopCh)
	if d.watcher != nil {
		d.watcher.Close()
	}
	d.wg.Wait()
	return nil
}
