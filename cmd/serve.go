package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/mockserver"
	"github.com/DachengChen/asksql/transport"
)

const shutdownTimeout = 5 * time.Second

var serveFlags struct {
	addr    string
	latency time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Serve the mock backend over HTTP",
	Long: `Serves the offline mock on ` + transport.ChatPath + ` so the TUI (or any other
client) can run in http mode without a real backend:

  asksql serve-mock --addr :8080
  asksql --mode http --backend http://localhost:8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveMock(cmd.Context(), serveFlags.addr, transport.NewMock(serveFlags.latency))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&serveFlags.latency, "latency", 0, "artificial delay before each answer")
	rootCmd.AddCommand(serveCmd)
}

// serveMock runs until ctx is cancelled, then shuts the server down.
func serveMock(ctx context.Context, addr string, backend transport.Transport) error {
	e := mockserver.New(backend)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		applog.Event("SERVE", "mock backend listening on %s", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
