package device

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Mmx233/improv/client"
	"github.com/Mmx233/improv/protocol"
	"github.com/rs/zerolog/log"
)

// step handles one message of an RPC exchange and reports whether the
// exchange is complete.
type step func(msg protocol.Message) (bool, error)

// exchange sends an RPC command and feeds every received message to next
// until it completes, the device reports an error, the device disconnects
// or the wait expires.
func exchange(ctx context.Context, c *client.Client, command byte, args []string, next step) error {
	name := protocol.RPCCommandName(command)
	logger := log.With().Str("com", "exchange").Str("rpc", name).Logger()

	result := make(chan error, 1)
	var finished atomic.Bool
	finish := func(err error) {
		if finished.CompareAndSwap(false, true) {
			result <- err
		}
	}

	c.OnMessage(func(msg protocol.Message) {
		if finished.Load() {
			return
		}
		if code, ok := msg.ErrorCode(); ok {
			if code != protocol.ErrorNone {
				finish(fmt.Errorf("device reported %s", code))
			}
			return
		}
		done, err := next(msg)
		if err != nil || done {
			finish(err)
			return
		}
		logger.Debug().Stringer("message", msg).Msg("waiting for more")
	})

	if err := c.SendRPC(ctx, command, args...); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	select {
	case err := <-result:
		return err
	case <-c.Done():
		select {
		case err := <-result:
			return err
		default:
		}
		return fmt.Errorf("device disconnected before answering %s", name)
	case <-ctx.Done():
		return fmt.Errorf("no answer to %s within %v: %w", name, wait, ctx.Err())
	}
}
