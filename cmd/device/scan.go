package device

import (
	"github.com/Mmx233/improv/protocol"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the Wi-Fi networks the device can see",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	c, out, err := connect(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	// One result per network, then an empty result ends the list
	return exchange(cmd.Context(), c, protocol.RPCRequestScannedNetworks, nil, func(msg protocol.Message) (bool, error) {
		rpc, ok := rpcResult(msg, protocol.RPCRequestScannedNetworks)
		if !ok {
			return false, nil
		}
		if len(rpc.Args) == 0 {
			return true, nil
		}
		return false, out.Print(newNetwork(rpc.Args))
	})
}
