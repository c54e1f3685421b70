package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"toolfeed/internal/adapter/tui/uxerror"
	"toolfeed/internal/infra/config"
	"toolfeed/internal/infra/logger"
	"toolfeed/internal/infra/tracer"
)

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\nRun 'toolfeed --help' for usage information.\n", err)
		os.Exit(2)
	}
	if args.help {
		showUsage(os.Stdout)
		return
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", args.command, uxerror.Humanize(err).Render())
		os.Exit(1)
	}
}

func showUsage(w io.Writer) {
	fmt.Fprint(w, `toolfeed - live activity feed for agent tool calls

USAGE:
    toolfeed [COMMAND] [FLAGS]

COMMANDS:
    serve          Run the gateway and keep an HTML feed (default)
    tui            Run the gateway and show the feed in the terminal
    replay FILE    Render a JSONL event log as HTML on stdout ("-" reads stdin)

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ./toolfeed.yaml)

CONFIGURATION:
    Environment: TOOLFEED_* variables override config
    TOOLFEED_CONFIG_KEY decrypts "enc:" gateway tokens

EXAMPLES:
    toolfeed serve --config /etc/toolfeed.yaml
    toolfeed tui
    toolfeed replay session.jsonl > feed.html
`)
}

// cliArgs is the parsed command line.
type cliArgs struct {
	command    string
	configPath string
	replayPath string
	help       bool
}

func parseArgs(argv []string) (cliArgs, error) {
	args := cliArgs{command: "serve"}
	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-h" || arg == "--help" || arg == "help":
			args.help = true
		case arg == "--config":
			if i+1 >= len(argv) {
				return args, errors.New("--config requires a path")
			}
			args.configPath = argv[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			args.configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "-":
			positional = append(positional, arg)
		case strings.HasPrefix(arg, "-"):
			return args, fmt.Errorf("unknown flag: %s", arg)
		default:
			positional = append(positional, arg)
		}
	}

	if args.configPath == "" {
		args.configPath = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	if args.configPath == "" {
		args.configPath = "toolfeed.yaml"
	}
	if args.help || len(positional) == 0 {
		return args, nil
	}

	args.command = positional[0]
	rest := positional[1:]
	switch args.command {
	case "serve", "tui":
		if len(rest) > 0 {
			return args, fmt.Errorf("%s takes no arguments", args.command)
		}
	case "replay":
		if len(rest) != 1 {
			return args, errors.New("replay requires exactly one FILE (or - for stdin)")
		}
		args.replayPath = rest[0]
	default:
		return args, fmt.Errorf("unknown command: %s", args.command)
	}
	return args, nil
}

func run(args cliArgs) error {
	var opts []config.LoadOption
	if args.command == "replay" {
		opts = append(opts, config.WithoutGateway())
	}
	cfg, err := config.Load(args.configPath, opts...)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if args.command == "tui" && isStdStream(cfg.Logger.Output) {
		// The terminal belongs to the feed view.
		cfg.Logger.Output = "discard"
	}
	if args.command == "replay" && cfg.Tracer.Output == "stdout" {
		cfg.Tracer.Output = "stderr"
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	log.Debug("toolfeed starting", "command", args.command, "config", args.configPath)

	switch args.command {
	case "tui":
		return runTUI(ctx, cfg, log)
	case "replay":
		return runReplay(ctx, cfg, log, args.replayPath, os.Stdout)
	default:
		return runServe(ctx, cfg, log)
	}
}

func isStdStream(output string) bool {
	switch strings.ToLower(output) {
	case "", "stdout", "stderr":
		return true
	}
	return false
}
