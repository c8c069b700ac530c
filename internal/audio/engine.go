// SPDX-License-Identifier: MIT
/*
Package audio implements real-time microphone capture feeding the pitch
analysis pipeline:
- PortAudio input stream with pre-allocated hot-path buffers
- Stereo to mono downmix
- Peak-amplitude noise gate
- Optional WAV recording of the raw input

Thread safety: the stream callback runs on the capture thread and owns the
pipeline; recording state uses an atomic flag so the UI thread can toggle it.
*/
package audio

import (
	"os"
	"runtime"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"chromatune/internal/analysis"
	"chromatune/internal/config"
	applog "chromatune/internal/log"
)

// Engine owns the capture stream and drives the analysis pipeline from the
// audio callback.
type Engine struct {
	cfg      *config.Config
	pipeline *analysis.Pipeline

	// Capture buffers, allocated once in NewEngine.
	inputBuffer []float32 // Interleaved frames x channels.
	monoBuffer  []float32 // Downmix target when capturing stereo.

	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	gateEnabled   bool
	gateThreshold float32

	// Recording state. The flag is atomic so StartRecording/StopRecording
	// can run off the capture thread.
	isRecording atomic.Bool
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer
	sampleScale float64
}

// NewEngine resolves the configured input device and pre-allocates all
// buffers the callback touches. PortAudio must already be initialized.
func NewEngine(cfg *config.Config, pipeline *analysis.Pipeline) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:           cfg,
		pipeline:      pipeline,
		inputBuffer:   make([]float32, cfg.Audio.FramesPerBuffer*cfg.Audio.InputChannels),
		monoBuffer:    make([]float32, cfg.Audio.FramesPerBuffer),
		inputDevice:   inputDevice,
		gateEnabled:   cfg.Audio.GateEnabled,
		gateThreshold: float32(cfg.Audio.GateThreshold),
	}

	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("Audio: using input device %q (latency %v)", inputDevice.Name, e.inputLatency)

	return e, nil
}

// Start opens and starts the capture stream.
func (e *Engine) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.cfg.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: e.cfg.Audio.FramesPerBuffer,
		SampleRate:      e.cfg.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInput)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		e.inputStream = nil
		return err
	}

	return nil
}

// Stop stops and closes the capture stream and resets the pipeline so a
// stale reading is never shown after capture ends.
func (e *Engine) Stop() error {
	if e.inputStream == nil {
		return nil
	}

	if err := e.inputStream.Stop(); err != nil {
		return err
	}
	if err := e.inputStream.Close(); err != nil {
		return err
	}
	e.inputStream = nil

	e.pipeline.Reset()
	return nil
}

// SwitchDevice stops capture, switches to the given input device and
// restarts if a stream was running. The pipeline resets on every switch so
// readings from the previous device never bleed into the new one.
func (e *Engine) SwitchDevice(deviceID int) error {
	device, err := InputDevice(deviceID)
	if err != nil {
		return err
	}

	wasRunning := e.inputStream != nil
	if err := e.Stop(); err != nil {
		return err
	}

	e.inputDevice = device
	e.cfg.Audio.InputDevice = deviceID
	if e.cfg.Audio.LowLatency {
		e.inputLatency = device.DefaultLowInputLatency
	} else {
		e.inputLatency = device.DefaultHighInputLatency
	}

	applog.Infof("Audio: switched to input device %q", device.Name)

	if wasRunning {
		return e.Start()
	}
	return nil
}

// Close stops recording and capture.
func (e *Engine) Close() error {
	if e.isRecording.Load() {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}
	return e.Stop()
}

// processInput is the capture callback. Hot path: pre-allocated buffers
// only, no allocations.
func (e *Engine) processInput(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(e.inputBuffer, in)
	mono := e.downmix(e.inputBuffer)

	if e.gateEnabled && peakAmplitude(mono) <= e.gateThreshold {
		// Gated buffers still advance the silence countdown so a muted
		// input clears the display.
		e.pipeline.ProcessSilence()
	} else {
		e.pipeline.Process(mono)
	}

	if e.isRecording.Load() && e.wavEncoder != nil {
		e.writeRecording(e.inputBuffer)
	}
}

// downmix reduces interleaved stereo to mono by averaging channel pairs.
// Mono input passes through untouched.
func (e *Engine) downmix(buffer []float32) []float32 {
	if e.cfg.Audio.InputChannels == 1 {
		return buffer
	}
	for i := range e.monoBuffer {
		base := i * 2
		if base+1 < len(buffer) {
			e.monoBuffer[i] = (buffer[base] + buffer[base+1]) * 0.5
		} else {
			e.monoBuffer[i] = 0
		}
	}
	return e.monoBuffer
}
