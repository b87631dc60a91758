package device

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Mmx233/improv/protocol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print every message the device sends",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "monitor-cmd").Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, out, err := connect(ctx, cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	lost := make(chan error, 1)
	c.OnMessage(func(msg protocol.Message) {
		if err := out.Print(viewMessage(msg)); err != nil {
			logger.Warn().Err(err).Msg("print message failed")
		}
	})
	c.OnDisconnected(func(port string, err error) {
		lost <- err
	})

	// Ask for the state once so the device shows up immediately
	if err := c.SendRPC(ctx, protocol.RPCRequestCurrentState); err != nil {
		return err
	}

	select {
	case err := <-lost:
		if err != nil {
			return err
		}
		logger.Info().Msg("device closed the connection")
	case <-ctx.Done():
		logger.Info().Msg("monitor stopped")
	}
	return nil
}
