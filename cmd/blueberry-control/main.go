package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/term"

	"github.com/ardelias/blueberry/internal/log"
	"github.com/ardelias/blueberry/pkg/cli"
	"github.com/ardelias/blueberry/pkg/connector/ble/goble"
	"github.com/ardelias/blueberry/pkg/device"
	"github.com/ardelias/blueberry/pkg/events"
	"github.com/ardelias/blueberry/pkg/plugin"
	"github.com/ardelias/blueberry/pkg/protocol"
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Without a COMMAND, an interactive shell starts and prints discovered devices as they arrive.
 * Starting a scan closes every open connection.
 * connect accepts devices bonded with this host and devices found by the last scan.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] [COMMAND [ARG...]]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		maxLength = max(maxLength, len(command))
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(ctx context.Context, s *session, args []string) int {
	if err := execute(ctx, s, args); err != nil {
		switch {
		case protocol.MayHaveSucceeded(err):
			writeErr("Couldn't verify success: %s", err)
		case errors.Is(err, protocol.ErrBluetoothUnavailable):
			writeErr("Bluetooth is not available. Is the adapter powered on?")
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

// printEvents writes scan results to w until sub is closed.
func printEvents(w io.Writer, sub *events.Subscription) {
	for e := range sub.C {
		if h, ok := e.Data.(device.Handle); ok {
			fmt.Fprintf(w, "\r%s: %s\n", e.Name, h)
		}
	}
}

func runInteractiveShell(ctx context.Context, s *session) int {
	sub := s.plugin.Subscribe(events.ScanResult)
	defer sub.Close()
	go printEvents(s.out, sub)

	prompt := func() {}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		prompt = func() { fmt.Fprint(s.out, "> ") }
	}

	scanner := bufio.NewScanner(os.Stdin)
	for prompt(); scanner.Scan(); prompt() {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if args[0] == "help" {
			showHelp(s.out, args[1:])
			continue
		}
		runCommand(ctx, s, args)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func showHelp(w io.Writer, args []string) bool {
	if len(args) == 0 {
		Usage()
		return true
	}
	info, ok := commands[args[0]]
	if !ok {
		writeErr("Unrecognized command: %s", args[0])
		return false
	}
	info.Usage(w, args[0])
	return true
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	config, err := cli.NewConfig(cli.FlagBluetooth)
	if err != nil {
		writeErr("Failed to load configuration: %s", err)
		return
	}
	flag.Usage = Usage
	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment()
	if config.Verbose {
		log.SetLevel(log.LevelDebug)
	}

	args := flag.Args()
	if len(args) > 0 {
		if args[0] == "help" {
			if showHelp(os.Stdout, args[1:]) {
				status = 0
			}
			return
		}
		if _, ok := commands[args[0]]; !ok {
			writeErr("Unrecognized command: %s", args[0])
			return
		}
	}

	provider, err := config.Provider()
	if err != nil {
		if goble.IsAdapterError(err) {
			writeErr("%s", goble.AdapterErrorHelpMessage(err))
		} else {
			writeErr("Error: %s", err)
		}
		// The HCI device requires elevated privileges on most systems.
		if strings.Contains(err.Error(), "operation not permitted") {
			writeErr("\nTry again after granting this application CAP_NET_ADMIN:\n\n\tsudo setcap 'cap_net_admin,cap_net_raw=eip' \"$(which %s)\"\n", os.Args[0])
		}
		return
	}

	p := plugin.New(provider, config.PluginConfig())
	defer func() {
		if err := p.Close(); err != nil {
			log.Warning("Error releasing Bluetooth adapter: %s", err)
		}
	}()

	ctx := context.Background()
	s := newSession(p, os.Stdout)
	if len(args) > 0 {
		status = runCommand(ctx, s, args)
	} else {
		status = runInteractiveShell(ctx, s)
	}
}
