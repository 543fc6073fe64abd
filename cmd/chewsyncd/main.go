package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("chewsyncd v%s\n", version)
	fmt.Println("Scan-to-chew coordination daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  chewsyncd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that turns visual identifications into device behavior. Each")
	fmt.Println("  scanned identifier triggers a fetch of its audio asset and chewing")
	fmt.Println("  parameters from the asset service; parameters become a control line")
	fmt.Println("  for the serial device, and the device's open/close events drive")
	fmt.Println("  synchronized audio playback from the installed asset.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -api-base-url string")
	fmt.Println("        Asset service base URL (default \"http://127.0.0.1:8001\")")
	fmt.Println()
	fmt.Println("  -serial-device string")
	fmt.Println("        Serial device path (default \"/dev/ttyACM0\")")
	fmt.Println()
	fmt.Println("  -serial-baud int")
	fmt.Printf("        Serial baud rate (default %d)\n", defaultSerialBaud)
	fmt.Println()
	fmt.Println("  -asset-path string")
	fmt.Println("        Where fetched audio assets are installed (default \"/tmp/chewsync-asset.wav\")")
	fmt.Println()
	fmt.Println("  -playback-mode string")
	fmt.Println("        Playback duration policy: interval_average|fixed (default \"interval_average\")")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/chewsync.sock\")")
	fmt.Println()
	fmt.Println("  -status-addr string")
	fmt.Println("        Status websocket/metrics listen address (default \"127.0.0.1:3002\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-format string")
	fmt.Println("        Log format: text, json (default \"text\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with a config file")
	fmt.Println("  chewsyncd -config /etc/chewsync/config.yaml")
	fmt.Println()
	fmt.Println("  # Override the device and service for bench testing")
	fmt.Println("  chewsyncd -serial-device /dev/ttyUSB0 -api-base-url http://bench.local:8001")
	fmt.Println()
	fmt.Println("  # Inject an identification without a camera")
	fmt.Println("  chewsync-ctl inject some-target-id")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read/write access to the serial device (dialout group)")
	fmt.Println("  - With no scanner.command configured, identifications arrive over IPC only")
	fmt.Println()
}

// daemonHandler adapts the running workers to the IPC command surface.
type daemonHandler struct {
	fetch  *AssetFetchWorker
	serial *SerialEventWorker
	state  *SharedState
}

func (d *daemonHandler) InjectIdentification(ctx context.Context, id string) error {
	return d.fetch.Inject(ctx, id)
}

func (d *daemonHandler) Snapshot() StatusSnapshot {
	snap := StatusSnapshot{}
	if id, p, ok := d.state.ParamsSnapshot(); ok {
		snap.LatestID = id
		snap.HasParams = true
		snap.Chewiness = p.Chewiness
		snap.Firmness = p.Firmness
	}
	h := d.serial.History()
	snap.IntervalSamples = h.Len()
	if avg, ok := h.Average(); ok {
		snap.IntervalAverage = avg
	}
	return snap
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		apiBaseURL   = flag.String("api-base-url", "", "Asset service base URL")
		serialDevice = flag.String("serial-device", "", "Serial device path")
		serialBaud   = flag.Int("serial-baud", 0, "Serial baud rate")
		assetPath    = flag.String("asset-path", "", "Audio asset install path")
		playbackMode = flag.String("playback-mode", "", "Playback duration policy: interval_average|fixed")
		ipcSocket    = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		statusAddr   = flag.String("status-addr", "", "Status websocket/metrics listen address")
		logLevelStr  = flag.String("log-level", "", "Log level: error, warn, info, debug")
		logFormat    = flag.String("log-format", "", "Log format: text, json")
		showVersion  = flag.Bool("version", false, "Print version and exit")
		showHelp     = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags the user actually set override the file.
	overrides := FlagOverrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api-base-url":
			overrides.APIBaseURL = apiBaseURL
		case "serial-device":
			overrides.SerialDevice = serialDevice
		case "serial-baud":
			overrides.SerialBaud = serialBaud
		case "asset-path":
			overrides.AssetPath = assetPath
		case "playback-mode":
			overrides.PlaybackMode = playbackMode
		case "ipc-socket":
			overrides.IPCSocket = ipcSocket
		case "status-addr":
			overrides.StatusAddr = statusAddr
		case "log-level":
			overrides.LogLevel = logLevelStr
		case "log-format":
			overrides.LogFormat = logFormat
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel, cfg.Logging.Format)

	// The serial device is the daemon's reason to exist: failing to open it
	// at startup is fatal. Reconnects handle failures after that.
	link, err := OpenSerialLink(cfg.Serial.Device, cfg.Serial.Baud, logger)
	if err != nil {
		logger.Error("failed to open serial device", "device", cfg.Serial.Device, "error", err,
			"tip", "check the device path and that the user is in the dialout group")
		os.Exit(1)
	}
	defer link.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := NewMetrics(prometheus.DefaultRegisterer)
	state := NewSharedState()
	hub := NewHub(logger)

	var source IdentificationSource
	if len(cfg.Scanner.Command) > 0 {
		source, err = startExecScanner(ctx, cfg.Scanner.Command, cfg.Scanner.MinArea, metrics, logger)
		if err != nil {
			logger.Error("failed to start scanner", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("no scanner configured; identifications arrive over IPC only")
		source = idleSource{}
	}

	assets, err := NewAssetFetcher(cfg.API.BaseURL, cfg.Audio.AssetPath, cfg.FetchTimeout(), cfg.TrimTransform(), logger)
	if err != nil {
		logger.Error("failed to set up asset fetcher", "error", err)
		os.Exit(1)
	}
	params, err := NewParamClient(cfg.API.BaseURL, cfg.FetchTimeout(), logger)
	if err != nil {
		logger.Error("failed to set up parameter client", "error", err)
		os.Exit(1)
	}
	player := newOtoPlayer(logger)

	fetchWorker := NewAssetFetchWorker(source, assets, params, state, hub, metrics, logger)
	serialWorker := NewSerialEventWorker(link, player, state, cfg.ToDurationPolicy(), cfg.Audio.AssetPath, hub, metrics, logger)
	dispatcher := NewDispatcher(link, state, time.Duration(cfg.Serial.DispatchPollMS)*time.Millisecond, hub, metrics, logger)

	handler := &daemonHandler{fetch: fetchWorker, serial: serialWorker, state: state}

	logger.Info("starting chewsyncd", "version", version,
		"serial_device", cfg.Serial.Device,
		"api_base_url", cfg.API.BaseURL,
		"asset_path", cfg.Audio.AssetPath,
		"playback_mode", cfg.Playback.Mode,
		"ipc_socket", cfg.IPC.SocketPath)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fetchWorker.Run(ctx) })
	g.Go(func() error { return serialWorker.Run(ctx) })
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return runIPCServer(ctx, cfg.IPC.SocketPath, handler, logger) })
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	if cfg.Status.Enabled {
		g.Go(func() error { return runStatusServer(ctx, cfg.Status.Addr, hub, logger) })
	}

	err = g.Wait()
	if err != nil && ctx.Err() == nil {
		logger.Error("daemon stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

// idleSource is the scanner stand-in when no command is configured. Poll
// blocks until shutdown so the fetch worker pump stays parked.
type idleSource struct{}

func (idleSource) Poll(ctx context.Context) (Scan, bool, error) {
	<-ctx.Done()
	return Scan{}, false, ctx.Err()
}
