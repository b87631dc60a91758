package client

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Dialer opens the byte stream to a device.
type Dialer interface {
	// Dial opens port at baudRate. It must give up when ctx is done.
	Dial(ctx context.Context, port string, baudRate int) (io.ReadWriteCloser, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, port string, baudRate int) (io.ReadWriteCloser, error)

func (f DialerFunc) Dial(ctx context.Context, port string, baudRate int) (io.ReadWriteCloser, error) {
	return f(ctx, port, baudRate)
}

// SerialDialer opens local serial ports in 8N1 mode.
type SerialDialer struct{}

func (SerialDialer) Dial(ctx context.Context, port string, baudRate int) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		// Keep DTR/RTS low so ESP boards are not reset into the bootloader
		InitialStatusBits: &serial.ModemOutputBits{RTS: false, DTR: false},
	}

	type result struct {
		port serial.Port
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := serial.Open(port, mode)
		ch <- result{port: p, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("open serial port: %w", r.err)
		}
		return r.port, nil
	case <-ctx.Done():
		// Close the port if the open completes after we gave up
		go func() {
			if r := <-ch; r.err == nil {
				r.port.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates the serial ports present on the host.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports, nil
}
