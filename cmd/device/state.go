package device

import (
	"github.com/Mmx233/improv/protocol"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Request the current provisioning state",
	Args:  cobra.NoArgs,
	RunE:  runState,
}

func runState(cmd *cobra.Command, args []string) error {
	c, out, err := connect(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	return exchange(cmd.Context(), c, protocol.RPCRequestCurrentState, nil, func(msg protocol.Message) (bool, error) {
		state, ok := msg.State()
		if !ok {
			return false, nil
		}
		return true, out.Print(stateView{State: state.String()})
	})
}
