package app

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/btrbak/internal/daemon"
)

var (
	daemonInterval time.Duration

	daemonCmd = &cobra.Command{
		Use:   "daemon",
		Short: "Run backup cycles on a fixed interval",
		Long: `Run in the foreground, executing one backup cycle per interval. The
configuration file is watched and reloaded when it changes, so policy
edits take effect without a restart. A failed cycle is logged and the
next one runs as scheduled.

Stop with SIGINT or SIGTERM; an in-flight cycle finishes first.`,
		Example: `  # A cycle every six hours
  btrbak daemon --interval 6h

  # From a systemd unit, every 15 minutes
  btrbak daemon --interval 15m`,
		RunE: runDaemon,
	}
)

func init() {
	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", time.Hour, "time between backup cycles")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfgPath, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	log := newLogger()

	// The runner is swapped on config reload; cycles take the mutex so
	// a reload never lands mid-cycle.
	var mu sync.Mutex
	runner := newRunner(cfg, st)

	cycle := func() error {
		mu.Lock()
		defer mu.Unlock()
		return runner.Run()
	}
	reload := func() error {
		fresh, err := loadConfig()
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		runner = newRunner(fresh, st)
		return nil
	}

	d, err := daemon.New(daemonInterval, cfgPath, cycle, reload, log)
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	log.WithField("interval", daemonInterval).Info("daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	fmt.Fprintf(cmd.ErrOrStderr(), "received signal %v, shutting down...\n", sig)

	return d.Stop()
}
