package device

import (
	"github.com/Mmx233/improv/protocol"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Request firmware and hardware information",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	c, out, err := connect(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	return exchange(cmd.Context(), c, protocol.RPCRequestDeviceInfo, nil, func(msg protocol.Message) (bool, error) {
		rpc, ok := rpcResult(msg, protocol.RPCRequestDeviceInfo)
		if !ok {
			return false, nil
		}
		return true, out.Print(newDeviceInfo(rpc.Args))
	})
}

// rpcResult returns the RPC result carried by msg if it answers command.
func rpcResult(msg protocol.Message, command byte) (protocol.RPC, bool) {
	if msg.Kind != protocol.KindRPCResponse {
		return protocol.RPC{}, false
	}
	rpc, err := msg.RPC()
	if err != nil || rpc.Command != command {
		return protocol.RPC{}, false
	}
	return rpc, true
}
