package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"blecentral/internal/infra/config"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error
	switch cmd := os.Args[1]; cmd {
	case "--help", "-h", "help":
		showUsage()
		return
	case "init":
		err = runInit(args)
	case "scan":
		err = runScan(args)
	case "monitor":
		err = runMonitor(args)
	case "serve":
		err = runServe(args)
	case "peripherals":
		err = runPeripherals(args)
	case "state":
		err = runState(args)
	case "doctor":
		err = runDoctor(args)
	case "encrypt":
		err = runEncrypt(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'blecentral --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`blecentral - BLE central adapter with an event emitter

USAGE:
    blecentral <COMMAND> [FLAGS]

COMMANDS:
    init          Write a starter config with a gateway token
    scan          Scan for peripherals and print each discovery
    monitor       Live peripheral table and event stream
    serve         Run the WebSocket gateway and scheduled scan windows
    peripherals   List peripherals cached in the store
    state         Print the adapter state after initialisation
    doctor        Run health checks on your setup
    encrypt       Encrypt a gateway token with $BLECENTRAL_CONFIG_KEY

FLAGS:
    -h, --help          Show this help message
    --config PATH       Config file path (default: ./blecentral.yaml)
    --backend NAME      Driver backend: auto, native or mock
    --duration D        Scan duration for 'scan' (default: 10s)
    --duplicates        Report every advertisement, not just the first
    --record            Write discoveries to the peripheral store

CONFIGURATION:
    Config file: ./blecentral.yaml
    Environment: BLECENTRAL_* variables override config

EXAMPLES:
    blecentral init --backend mock
    blecentral scan --backend mock --duration 5s
    blecentral monitor
    blecentral serve --config /etc/blecentral.yaml
    blecentral doctor`)
}

// cliFlags holds the flags shared by every command.
type cliFlags struct {
	ConfigPath string
	Backend    string
	Duration   time.Duration
	Duplicates bool
	Record     bool
	Rest       []string // positional arguments
}

const defaultScanDuration = 10 * time.Second

// parseFlags accepts "--flag value" and "--flag=value".
func parseFlags(args []string) (cliFlags, error) {
	flags := cliFlags{Duration: defaultScanDuration}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		next := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag %s needs a value", name)
			}
			i++
			return args[i], nil
		}

		switch name {
		case "--config":
			v, err := next()
			if err != nil {
				return flags, err
			}
			flags.ConfigPath = v
		case "--backend":
			v, err := next()
			if err != nil {
				return flags, err
			}
			flags.Backend = v
		case "--duration":
			v, err := next()
			if err != nil {
				return flags, err
			}
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return flags, fmt.Errorf("invalid --duration %q", v)
			}
			flags.Duration = d
		case "--duplicates":
			flags.Duplicates = true
		case "--record":
			flags.Record = true
		default:
			if strings.HasPrefix(arg, "-") {
				return flags, fmt.Errorf("unknown flag %s", arg)
			}
			flags.Rest = append(flags.Rest, arg)
		}
	}
	if flags.ConfigPath == "" {
		flags.ConfigPath = configPath()
	}
	return flags, nil
}

func configPath() string {
	if p := os.Getenv("BLECENTRAL_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath
}
