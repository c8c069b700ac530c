// Package cmd parses command line arguments into the application
// configuration.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"chromatune/internal/build"
	"chromatune/internal/config"
)

// Options is the parsed invocation: the effective configuration plus which
// mode the program should run in.
type Options struct {
	Config  *config.Config
	Command string // One-off command, e.g. "list". Empty for normal runs.
	TUIMode bool
}

// ParseArgs parses os.Args into Options. Flags override the loaded
// configuration file only when explicitly set.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetInfo()
	opts := &Options{}

	var (
		configPath      string
		device          int
		sampleRate      float64
		framesPerBuffer int
		channels        int
		lowLatency      bool
		record          bool
		outputDir       string
		wsAddr          string
		udpTarget       string
		verbose         bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time chromatic tuner for the terminal",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			f := cmd.Flags()
			if f.Changed("device") {
				cfg.Audio.InputDevice = device
			}
			if f.Changed("sample-rate") {
				cfg.Audio.SampleRate = sampleRate
			}
			if f.Changed("frames-per-buffer") {
				cfg.Audio.FramesPerBuffer = framesPerBuffer
			}
			if f.Changed("channels") {
				cfg.Audio.InputChannels = channels
			}
			if f.Changed("low-latency") {
				cfg.Audio.LowLatency = lowLatency
			}
			if f.Changed("record") {
				cfg.Recording.Enabled = record
			}
			if f.Changed("output-dir") {
				cfg.Recording.OutputDir = outputDir
			}
			if f.Changed("ws-addr") {
				cfg.Transport.WebSocketEnabled = true
				cfg.Transport.WebSocketAddr = wsAddr
			}
			if f.Changed("udp-target") {
				cfg.Transport.UDPEnabled = true
				cfg.Transport.UDPTargetAddress = udpTarget
			}
			if verbose {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}

			// Flag overrides can break constraints the file satisfied.
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts.Config = cfg
			opts.TUIMode = true
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to the configuration file")
	rootCmd.PersistentFlags().IntVarP(&device, "device", "d", config.MinDeviceID,
		"Input device ID. Use the 'list' command to see available devices")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", 44100,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&framesPerBuffer, "frames-per-buffer", "b", 1024,
		"Frames per capture buffer (affects latency)")
	rootCmd.PersistentFlags().IntVarP(&channels, "channels", "c", 1,
		"Input channels (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", false,
		"Request low latency from the input device")
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the input stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "./recordings",
		"Directory for recordings")
	rootCmd.PersistentFlags().StringVar(&wsAddr, "ws-addr", ":8080",
		"Serve readings over WebSocket on this address")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp-target", "127.0.0.1:9090",
		"Send binary reading packets to this UDP address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return opts, nil
}
