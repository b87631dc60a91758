package device

import (
	"fmt"

	"github.com/Mmx233/improv/protocol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	ssid     string
	password string

	provisionCmd = &cobra.Command{
		Use:   "provision",
		Short: "Send Wi-Fi credentials to the device",
		Args:  cobra.NoArgs,
		RunE:  runProvision,
	}
)

func init() {
	provisionCmd.Flags().StringVar(&ssid, "ssid", "", "network name")
	provisionCmd.Flags().StringVar(&password, "password", "", "network password")
	_ = provisionCmd.MarkFlagRequired("ssid")
}

func runProvision(cmd *cobra.Command, args []string) error {
	logger := log.With().Str("com", "provision-cmd").Logger()

	// Fail before touching the device if the credentials cannot be framed
	if _, err := protocol.EncodeRPC(protocol.RPCSendWiFiSettings, ssid, password); err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	c, out, err := connect(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	result := provisionResult{}
	return exchange(cmd.Context(), c, protocol.RPCSendWiFiSettings, []string{ssid, password}, func(msg protocol.Message) (bool, error) {
		if state, ok := msg.State(); ok {
			result.State = state.String()
			logger.Info().Str("state", result.State).Msg("device state changed")
			return false, nil
		}
		rpc, ok := rpcResult(msg, protocol.RPCSendWiFiSettings)
		if !ok {
			return false, nil
		}
		if result.State == "" {
			result.State = protocol.StateProvisioned.String()
		}
		result.URLs = rpc.Args
		return true, out.Print(result)
	})
}
