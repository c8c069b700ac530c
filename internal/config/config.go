// Package config loads the application configuration from YAML, applies
// environment variable overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"chromatune/pkg/bitint"
)

// Limits for configuration validation.
const (
	MinDeviceID   = -1     // -1 selects the system default input device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MaxFFTSize    = 32768  // Largest FFT the analyzer will plan
)

// Config is the root configuration, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Verbose logging and debug features.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error".
	Audio     AudioConfig     `yaml:"audio"`     // Capture settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // FFT and pitch estimation settings.
	Smoothing SmoothingConfig `yaml:"smoothing"` // Reading stabilization settings.
	Display   DisplayConfig   `yaml:"display"`   // TUI settings.
	Recording RecordingConfig `yaml:"recording"` // Input stream recording settings.
	Transport TransportConfig `yaml:"transport"` // Reading broadcast settings.
}

// AudioConfig holds PortAudio capture settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // Device index, -1 for default.
	SampleRate      float64 `yaml:"sample_rate"`       // Hz, e.g. 44100 or 48000.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	InputChannels   int     `yaml:"input_channels"`    // 1 for mono, 2 for stereo.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device.
	GateEnabled     bool    `yaml:"gate_enabled"`      // Skip analysis below the gate threshold.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Peak amplitude, 0.0-1.0.
}

// AnalysisConfig holds the FFT and fundamental estimation settings.
type AnalysisConfig struct {
	FFTSize          int     `yaml:"fft_size"`          // Analysis window length, power of 2.
	Window           string  `yaml:"window"`            // Window function name, e.g. "hann".
	MinFrequency     float64 `yaml:"min_frequency"`     // Low edge of the search band (Hz).
	MaxFrequency     float64 `yaml:"max_frequency"`     // High edge of the search band (Hz).
	SilenceThreshold float64 `yaml:"silence_threshold"` // Normalized peak amplitude floor.
	OverlapFraction  float64 `yaml:"overlap_fraction"`  // Window overlap, 0 <= f < 1.
}

// SmoothingConfig holds the reading stabilization parameters.
// These are tuning knobs; the defaults were chosen empirically.
type SmoothingConfig struct {
	HistorySize    int     `yaml:"history_size"`    // Rolling estimate history length.
	ConfirmCycles  int     `yaml:"confirm_cycles"`  // Cycles required to accept a new value.
	DeviationCents float64 `yaml:"deviation_cents"` // Max deviation from the rolling median.
	SilenceCycles  int     `yaml:"silence_cycles"`  // Silent cycles before clearing the reading.
	CentsSmoothing float64 `yaml:"cents_smoothing"` // EMA weight kept from the previous cents value.
}

// DisplayConfig holds TUI settings. The cent thresholds drive color coding
// only; the analysis core never consults them.
type DisplayConfig struct {
	InTuneCents     float64       `yaml:"in_tune_cents"`    // |cents| below this renders green.
	CloseCents      float64       `yaml:"close_cents"`      // |cents| below this renders yellow.
	RefreshInterval time.Duration `yaml:"refresh_interval"` // TUI poll interval.
}

// RecordingConfig holds settings for recording the raw input stream.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record input to a WAV file.
	OutputDir string `yaml:"output_dir"` // Directory for recordings.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// TransportConfig holds settings for broadcasting readings to external
// displays.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve readings over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary reading packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target "host:port".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     -1,
			SampleRate:      44100,
			FramesPerBuffer: 1024,
			InputChannels:   1,
			LowLatency:      false,
			GateEnabled:     true,
			GateThreshold:   0.001,
		},
		Analysis: AnalysisConfig{
			FFTSize:          8192,
			Window:           "hann",
			MinFrequency:     80,
			MaxFrequency:     2000,
			SilenceThreshold: 0.005,
			OverlapFraction:  0.5,
		},
		Smoothing: SmoothingConfig{
			HistorySize:    8,
			ConfirmCycles:  3,
			DeviationCents: 35,
			SilenceCycles:  8,
			CentsSmoothing: 0.8,
		},
		Display: DisplayConfig{
			InTuneCents:     5,
			CloseCents:      20,
			RefreshInterval: 50 * time.Millisecond,
		},
		Recording: RecordingConfig{
			Enabled:   false,
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
		},
	}
}

// Load reads configuration from the YAML file at path. An empty path checks
// the default location ("config.yaml") and falls back to built-in defaults
// when no file exists. Environment overrides are applied after loading, then
// the result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		} else {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if !bitint.IsPowerOfTwo(c.Analysis.FFTSize) {
		return fmt.Errorf("analysis.fft_size must be a power of 2, got %d", c.Analysis.FFTSize)
	}
	if c.Analysis.FFTSize > MaxFFTSize {
		return fmt.Errorf("analysis.fft_size %d exceeds maximum %d", c.Analysis.FFTSize, MaxFFTSize)
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside supported range [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice)
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > 2 {
		return fmt.Errorf("audio.input_channels must be 1 or 2, got %d", c.Audio.InputChannels)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive, got %d", c.Audio.FramesPerBuffer)
	}
	if c.Analysis.MinFrequency <= 0 || c.Analysis.MaxFrequency <= c.Analysis.MinFrequency {
		return fmt.Errorf("analysis frequency band [%.1f, %.1f] is invalid",
			c.Analysis.MinFrequency, c.Analysis.MaxFrequency)
	}
	if c.Analysis.MaxFrequency > c.Audio.SampleRate/2 {
		return fmt.Errorf("analysis.max_frequency %.1f exceeds Nyquist limit %.1f",
			c.Analysis.MaxFrequency, c.Audio.SampleRate/2)
	}
	if c.Analysis.OverlapFraction < 0 || c.Analysis.OverlapFraction >= 1 {
		return fmt.Errorf("analysis.overlap_fraction must be in [0, 1), got %.2f", c.Analysis.OverlapFraction)
	}
	if c.Smoothing.HistorySize < 1 {
		return fmt.Errorf("smoothing.history_size must be >= 1, got %d", c.Smoothing.HistorySize)
	}
	if c.Smoothing.ConfirmCycles < 1 {
		return fmt.Errorf("smoothing.confirm_cycles must be >= 1, got %d", c.Smoothing.ConfirmCycles)
	}
	if c.Smoothing.SilenceCycles < 1 {
		return fmt.Errorf("smoothing.silence_cycles must be >= 1, got %d", c.Smoothing.SilenceCycles)
	}
	if c.Smoothing.CentsSmoothing < 0 || c.Smoothing.CentsSmoothing >= 1 {
		return fmt.Errorf("smoothing.cents_smoothing must be in [0, 1), got %.2f", c.Smoothing.CentsSmoothing)
	}
	if c.Display.InTuneCents <= 0 || c.Display.CloseCents <= c.Display.InTuneCents {
		return fmt.Errorf("display cent thresholds (%.1f, %.1f) must satisfy 0 < in_tune < close",
			c.Display.InTuneCents, c.Display.CloseCents)
	}
	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}
	return nil
}

// applyEnvOverrides applies CHROMATUNE_* environment variables on top of the
// loaded configuration.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("CHROMATUNE_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("CHROMATUNE_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("CHROMATUNE_WS_ADDR"); ok {
		c.Transport.WebSocketEnabled = true
		c.Transport.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("CHROMATUNE_UDP_TARGET"); ok {
		c.Transport.UDPEnabled = true
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("CHROMATUNE_UDP_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = dur
		}
	}
}
