package ports

import (
	"fmt"
	"io"

	"github.com/Mmx233/improv/client"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool

	// listPorts is replaced in tests
	listPorts = client.ListPorts

	Cmd = &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE:  runPorts,
	}
)

func init() {
	Cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := listPorts()
	if err != nil {
		return err
	}
	return printPorts(cmd.OutOrStdout(), ports, jsonOutput)
}

func printPorts(w io.Writer, ports []client.PortInfo, asJSON bool) error {
	if asJSON {
		type port struct {
			Name         string `json:"name"`
			USB          bool   `json:"usb"`
			VID          string `json:"vid,omitempty"`
			PID          string `json:"pid,omitempty"`
			SerialNumber string `json:"serial_number,omitempty"`
			Product      string `json:"product,omitempty"`
		}
		list := make([]port, 0, len(ports))
		for _, p := range ports {
			list = append(list, port{p.Name, p.IsUSB, p.VID, p.PID, p.SerialNumber, p.Product})
		}
		return jsoniter.NewEncoder(w).Encode(list)
	}

	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "no serial ports found")
		return err
	}
	for _, p := range ports {
		line := p.Name
		if p.IsUSB {
			line += fmt.Sprintf("  usb %s:%s", p.VID, p.PID)
			if p.Product != "" {
				line += "  " + p.Product
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
