package main

import (
	"runtime"

	"chromatune/cmd"
	"chromatune/internal/analysis"
	"chromatune/internal/audio"
	"chromatune/internal/build"
	"chromatune/internal/config"
	applog "chromatune/internal/log"
	"chromatune/internal/transport"
	"chromatune/internal/transport/udp"
	"chromatune/internal/tui"
)

// main runs in three phases:
//
// 1. Startup (cold path): build info, PortAudio, argument parsing, one-off
// commands.
//
// 2. Capture (hot path): the audio callback drives the analysis pipeline;
// the TUI and transports poll the published reading.
//
// 3. Shutdown (cold path): stop transports, recording and the stream.
func main() {
	build.Initialize()

	// One thread for the audio callback, one for the UI and transports.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	opts, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if opts.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}
	if !opts.TUIMode {
		return
	}

	cfg := opts.Config
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}
	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	pipeline, err := analysis.NewPipeline(cfg)
	if err != nil {
		return err
	}

	engine, err := audio.NewEngine(cfg, pipeline)
	if err != nil {
		return err
	}

	if err := engine.Start(); err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Shutdown: closing audio engine: %v", err)
		}
	}()

	if cfg.Recording.Enabled {
		path, err := audio.RecordingPath(cfg.Recording.OutputDir)
		if err != nil {
			return err
		}
		if err := engine.StartRecording(path); err != nil {
			return err
		}
	}

	closers, err := startTransports(cfg, pipeline.Publisher())
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				applog.Errorf("Shutdown: closing transport: %v", err)
			}
		}
	}()

	// Blocks until the user quits; the capture callback keeps feeding the
	// pipeline in the background.
	return tui.Run(cfg, pipeline.Publisher(), engine)
}

// startTransports wires up the configured reading broadcasters. Returns
// the closers in shutdown order.
func startTransports(cfg *config.Config, source *analysis.Publisher) ([]interface{ Close() error }, error) {
	var closers []interface{ Close() error }

	var transports []transport.Transport
	if cfg.Transport.WebSocketEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
	}
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if len(transports) > 0 {
		broadcaster, err := transport.NewBroadcaster(cfg.Display.RefreshInterval, source, transports...)
		if err != nil {
			return nil, err
		}
		broadcaster.Start()
		closers = append(closers, broadcaster)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, err
		}
		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, source)
		if err != nil {
			sender.Close()
			return nil, err
		}
		publisher.Start()
		closers = append(closers, publisher, sender)
	}

	return closers, nil
}
