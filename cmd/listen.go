package cmd

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/discussions/internal/app"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/presentation"
)

var listenNoWatch bool

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Dispatch newline-delimited JSON events from stdin",
	Long: `Read one JSON event per line from stdin and send it to its signal.
Each event runs in its own request context. One JSON result line is
written per event. The config file is watched so flag and word list
changes apply without a restart.

Example:
  echo '{"signal":"thread_created","post":{"id":"t1","type":"thread","course_id":"course-v1:edX+DemoX+Demo_Course","title":"Hi"}}' \
    | discussions listen`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&listenNoWatch, "no-watch", false, "do not reload the config file on change")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !listenNoWatch {
		if _, statErr := os.Stat(configPath); statErr == nil {
			if err := a.WatchConfig(nil); err != nil {
				log.ErrorErr(log.CatWatcher, "Config watch not started", err, "path", configPath)
			}
		}
	}

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	out := formatter(cmd)
	for {
		select {
		case <-ctx.Done():
			log.Info(log.CatSignal, "Listener stopped", "reason", context.Cause(ctx))
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			if err := out.FormatLine(handleLine(ctx, a, line)); err != nil {
				return err
			}
		}
	}
}

func handleLine(ctx context.Context, a *app.App, line []byte) presentation.DispatchDTO {
	ev, err := decodeEvent(line)
	if err != nil {
		return presentation.DispatchDTO{Signal: ev.Signal, Error: err.Error()}
	}
	return dispatchEvent(ctx, a, ev)
}
