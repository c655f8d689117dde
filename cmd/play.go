package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/smazurov/sdinode/internal/logging"
	"github.com/smazurov/sdinode/internal/media"
	"github.com/smazurov/sdinode/internal/playback"
	"github.com/smazurov/sdinode/internal/samples"
	"github.com/spf13/cobra"
)

// CreatePlayCmd creates the play command.
func CreatePlayCmd(settings SettingsFunc) *cobra.Command {
	var duration time.Duration
	var paused bool

	cmd := &cobra.Command{
		Use:   "play sdi://N",
		Short: "Play a device headless and print session statistics",
		Long: `Opens the device named by the selector, plays it at the configured tick rate ` +
			`for the given duration (or until interrupted) and prints the player's counters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return play(ctx, cmd, settings(), args[0], paused)
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 5*time.Second, "How long to play; 0 plays until interrupted")
	cmd.Flags().BoolVar(&paused, "paused", false, "Open the device and hold it paused")
	return cmd
}

func play(ctx context.Context, cmd *cobra.Command, s Settings, url string, paused bool) error {
	logger := logging.GetLogger("player").With("url", url)

	m, err := newModule(s)
	if err != nil {
		return err
	}
	if err := m.Startup(ctx); err != nil {
		return fmt.Errorf("discover devices: %w", err)
	}
	defer m.Shutdown()

	queue := samples.NewQueue(s.QueueSize)
	p := m.CreatePlayer(nil, queue)

	var presented atomic.Uint64
	driver := playback.NewDriver(p, queue,
		playback.WithTickRate(float64(s.TickRate)),
		playback.WithPresenter(func(batch []*media.VideoSample) {
			for _, v := range batch {
				presented.Add(1)
				v.Release()
			}
		}),
	)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	runErr := make(chan error, 1)
	go func() { runErr <- driver.Run(runCtx) }()

	rate := 1.0
	if paused {
		rate = 0
	}
	var openErr error
	err = driver.Do(ctx, func() {
		if openErr = p.Open(url, nil); openErr == nil {
			openErr = p.SetRate(rate)
		}
	})
	if err == nil {
		err = openErr
	}
	if err != nil && ctx.Err() == nil {
		cancelRun()
		<-runErr
		return err
	}
	logger.Info("Playing", "info", p.Info())

	if err := <-runErr; err != nil {
		return err
	}

	// The driver has returned, so this goroutine owns the player.
	stats := p.Stats()
	p.Dispose()

	out := cmd.OutOrStdout()
	fmt.Fprint(out, stats.String())
	fmt.Fprintf(out, "presented=%d queue_dropped=%d ticks=%d\n", presented.Load(), queue.Dropped(), driver.Ticks())
	return nil
}
