package device

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Mmx233/improv/config"
	"github.com/Mmx233/improv/protocol"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printer writes results either as text lines or as one JSON document per line.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, output string) *printer {
	return &printer{w: w, json: output == config.OutputJSON}
}

// Print writes v. Text output uses v's String method.
func (p *printer) Print(v fmt.Stringer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.json {
		_, err := fmt.Fprintln(p.w, v.String())
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = p.w.Write(append(data, '\n'))
	return err
}

type messageView struct {
	Kind    string   `json:"kind"`
	Body    string   `json:"body"`
	State   string   `json:"state,omitempty"`
	Error   string   `json:"error,omitempty"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

func viewMessage(msg protocol.Message) messageView {
	v := messageView{
		Kind: msg.Kind.String(),
		Body: hex.EncodeToString(msg.Body),
	}
	if state, ok := msg.State(); ok {
		v.State = state.String()
	}
	if code, ok := msg.ErrorCode(); ok {
		v.Error = code.String()
	}
	if rpc, err := msg.RPC(); err == nil {
		v.Command = protocol.RPCCommandName(rpc.Command)
		v.Args = rpc.Args
	}
	return v
}

func (v messageView) String() string {
	switch {
	case v.State != "":
		return v.Kind + " " + v.State
	case v.Error != "":
		return v.Kind + " " + v.Error
	case v.Command != "":
		return v.Kind + " " + v.Command + " " + strings.Join(v.Args, " ")
	default:
		return v.Kind + " " + v.Body
	}
}

type stateView struct {
	State string `json:"state"`
}

func (v stateView) String() string { return v.State }

type deviceInfo struct {
	Firmware string   `json:"firmware"`
	Version  string   `json:"version"`
	Chip     string   `json:"chip"`
	Name     string   `json:"name"`
	Extra    []string `json:"extra,omitempty"`
}

// newDeviceInfo maps the device info result fields in their wire order.
func newDeviceInfo(args []string) deviceInfo {
	field := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	info := deviceInfo{
		Firmware: field(0),
		Version:  field(1),
		Chip:     field(2),
		Name:     field(3),
	}
	if len(args) > 4 {
		info.Extra = args[4:]
	}
	return info
}

func (i deviceInfo) String() string {
	return fmt.Sprintf("name=%s firmware=%s version=%s chip=%s", i.Name, i.Firmware, i.Version, i.Chip)
}

type network struct {
	SSID   string `json:"ssid"`
	RSSI   string `json:"rssi"`
	Secure bool   `json:"secure"`
}

func newNetwork(args []string) network {
	n := network{}
	if len(args) > 0 {
		n.SSID = args[0]
	}
	if len(args) > 1 {
		n.RSSI = args[1]
	}
	if len(args) > 2 {
		n.Secure = strings.EqualFold(args[2], "YES")
	}
	return n
}

func (n network) String() string {
	lock := "open"
	if n.Secure {
		lock = "secured"
	}
	return fmt.Sprintf("%-32s %5s dBm  %s", n.SSID, n.RSSI, lock)
}

type provisionResult struct {
	State string   `json:"state"`
	URLs  []string `json:"urls"`
}

func (r provisionResult) String() string {
	if len(r.URLs) == 0 {
		return r.State
	}
	return r.State + " " + strings.Join(r.URLs, " ")
}
