package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "chromatune/internal/log"
)

// RecordingPath returns a timestamped WAV filename inside dir, creating the
// directory if needed.
func RecordingPath(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}
	name := time.Now().Format("capture_20060102_150405.wav")
	return filepath.Join(dir, name), nil
}

// StartRecording begins writing the raw input stream to a WAV file at the
// configured bit depth.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	bitDepth := e.cfg.Recording.BitDepth
	e.wavEncoder = wav.NewEncoder(file, int(e.cfg.Audio.SampleRate),
		bitDepth, e.cfg.Audio.InputChannels, 1)

	e.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: e.cfg.Audio.InputChannels,
			SampleRate:  int(e.cfg.Audio.SampleRate),
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, e.cfg.Audio.FramesPerBuffer*e.cfg.Audio.InputChannels),
	}
	e.sampleScale = float64(int64(1)<<(bitDepth-1)) - 1

	e.isRecording.Store(true)
	applog.Infof("Recording: started %s (%d-bit)", filename, bitDepth)

	return nil
}

// StopRecording finalizes the WAV file. Safe to call when not recording.
func (e *Engine) StopRecording() error {
	if !e.isRecording.Load() {
		return nil
	}

	e.isRecording.Store(false)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		applog.Infof("Recording: stopped %s", e.outputFile.Name())
		e.outputFile = nil
	}

	return nil
}

// writeRecording converts the captured float samples to integer PCM and
// appends them to the open WAV file. Runs on the capture thread.
func (e *Engine) writeRecording(buffer []float32) {
	data := e.sampleBuf.Data[:cap(e.sampleBuf.Data)]
	n := len(buffer)
	if n > len(data) {
		n = len(data)
	}
	for i := 0; i < n; i++ {
		v := float64(buffer[i])
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		data[i] = int(v * e.sampleScale)
	}
	e.sampleBuf.Data = data[:n]

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Recording: write failed: %v", err)
	}
}
