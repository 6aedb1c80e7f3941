package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ardelias/blueberry/pkg/channel"
	"github.com/ardelias/blueberry/pkg/plugin"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrInvalidHex      = errors.New("invalid hex payload")
)

type Argument struct {
	name string
	help string
}

// session is the state shared by commands.
type session struct {
	dispatcher *channel.Dispatcher
	plugin     *plugin.Plugin
	out        io.Writer
}

func newSession(p *plugin.Plugin, out io.Writer) *session {
	return &session{
		dispatcher: channel.NewDispatcher(p),
		plugin:     p,
		out:        out,
	}
}

func (s *session) call(ctx context.Context, method string, args map[string]any) (*structpb.Value, error) {
	call, err := channel.NewMethodCall(method, args)
	if err != nil {
		return nil, err
	}
	return s.dispatcher.Dispatch(ctx, call)
}

type Handler func(ctx context.Context, s *session, args map[string]string) error

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	handler  Handler
}

// ParseHex decodes a payload such as "1b40", "1b 40" or "1b:40".
func ParseHex(payload string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(payload)
	clean = strings.TrimPrefix(strings.ToLower(clean), "0x")
	if clean == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidHex)
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHex, err)
	}
	return data, nil
}

func byteArguments(data []byte) []any {
	values := make([]any, len(data))
	for i, b := range data {
		values[i] = int(b)
	}
	return values
}

func valueBytes(v *structpb.Value) []byte {
	values := v.GetListValue().GetValues()
	data := make([]byte, len(values))
	for i, b := range values {
		data[i] = byte(b.GetNumberValue())
	}
	return data
}

func execute(ctx context.Context, s *session, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}

	info, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	var err error
	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).", len(args)-1, len(info.args), len(info.optional))
		err = ErrCommandLineArgs
	} else {
		keywords := make(map[string]string)
		for i, argInfo := range info.args {
			keywords[argInfo.name] = args[i+1]
		}
		index := len(info.args) + 1
		for _, argInfo := range info.optional {
			if index >= len(args) {
				break
			}
			keywords[argInfo.name] = args[index]
			index++
		}
		err = info.handler(ctx, s, keywords)
	}

	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(s.out, args[0])
	}
	return err
}

func (c *Command) Usage(w io.Writer, name string) {
	fmt.Fprintf(w, "Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(w, " %s", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	for _, arg := range c.optional {
		fmt.Fprintf(w, " [%s]", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	fmt.Fprintf(w, "\n%s\n", c.help)
	maxLength++
	for _, arg := range append(c.args, c.optional...) {
		fmt.Fprintf(w, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

var addressArg = Argument{name: "ADDRESS", help: "Bluetooth device address, e.g. 00:11:22:33:44:55"}

var commands = map[string]*Command{
	"start-scan": {
		help: "Start discovering devices. Closes every open connection.",
		handler: func(ctx context.Context, s *session, _ map[string]string) error {
			if _, err := s.call(ctx, channel.MethodStartScan, nil); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Scanning...")
			return nil
		},
	},
	"stop-scan": {
		help: "Stop discovering devices",
		handler: func(ctx context.Context, s *session, _ map[string]string) error {
			if _, err := s.call(ctx, channel.MethodStopScan, nil); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "Scan stopped. %d devices found.\n", len(s.plugin.Devices()))
			return nil
		},
	},
	"connect": {
		help: "Open an RFCOMM connection to a bonded or discovered device",
		args: []Argument{addressArg},
		handler: func(ctx context.Context, s *session, args map[string]string) error {
			v, err := s.call(ctx, channel.MethodConnect, map[string]any{"address": args["ADDRESS"]})
			if err != nil {
				return err
			}
			if v.GetBoolValue() {
				fmt.Fprintf(s.out, "Connected to %s\n", args["ADDRESS"])
			} else {
				fmt.Fprintf(s.out, "Could not connect to %s\n", args["ADDRESS"])
			}
			return nil
		},
	},
	"disconnect": {
		help:     "Close the connection to a device, or every connection if no address is given",
		optional: []Argument{addressArg},
		handler: func(ctx context.Context, s *session, args map[string]string) error {
			arguments := map[string]any{}
			if address, ok := args["ADDRESS"]; ok {
				arguments["address"] = address
			}
			v, err := s.call(ctx, channel.MethodDisconnect, arguments)
			if err != nil {
				return err
			}
			if v.GetBoolValue() {
				fmt.Fprintln(s.out, "Disconnected")
			} else {
				fmt.Fprintln(s.out, "Not connected")
			}
			return nil
		},
	},
	"is-connected": {
		help: "Check whether a connection to a device is open",
		args: []Argument{addressArg},
		handler: func(ctx context.Context, s *session, args map[string]string) error {
			v, err := s.call(ctx, channel.MethodIsConnected, map[string]any{"address": args["ADDRESS"]})
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, v.GetBoolValue())
			return nil
		},
	},
	"send": {
		help: "Send bytes to a connected device and print the response",
		args: []Argument{
			addressArg,
			{name: "HEX", help: "payload as hex digits, e.g. 1b40"},
		},
		handler: func(ctx context.Context, s *session, args map[string]string) error {
			payload, err := ParseHex(args["HEX"])
			if err != nil {
				return fmt.Errorf("%w: %s", ErrCommandLineArgs, err)
			}
			v, err := s.call(ctx, channel.MethodSend, map[string]any{
				"address": args["ADDRESS"],
				"bytes":   byteArguments(payload),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, "%02x\n", valueBytes(v))
			return nil
		},
	},
	"status": {
		help: "Print scan state, discovered devices and open connections",
		handler: func(_ context.Context, s *session, _ map[string]string) error {
			state := "idle"
			if s.plugin.Scanning() {
				state = "scanning"
			}
			fmt.Fprintf(s.out, "Scan: %s\n", state)
			fmt.Fprintln(s.out, "Devices:")
			for _, d := range s.plugin.Devices() {
				fmt.Fprintf(s.out, "  %s\n", d)
			}
			fmt.Fprintln(s.out, "Connections:")
			for _, address := range s.plugin.Connections() {
				fmt.Fprintf(s.out, "  %s\n", address)
			}
			return nil
		},
	},
	"platform": {
		help: "Print the operating system and Bluetooth stack",
		handler: func(ctx context.Context, s *session, _ map[string]string) error {
			v, err := s.call(ctx, channel.MethodPlatformVersion, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, v.GetStringValue())
			return nil
		},
	},
}
