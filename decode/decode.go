// Package decode turns audio sources into prepared analysis signals:
// mono float PCM at 44100 Hz with DC offset removed. WAV files are
// parsed natively; everything else goes through an ffmpeg fallback.
package decode

import (
	"context"
	"errors"
	"os"

	"github.com/sliceforge/sliceforge/logging"
)

// File decodes the audio file at path into a prepared Signal.
// Failures are reported as *DecodeError (or ErrEmptyInput for
// zero-length sources) so batch callers can isolate bad files.
func File(ctx context.Context, path string) (Signal, error) {
	return FileWithConfig(ctx, path, DefaultFFmpegConfig())
}

// FileWithConfig decodes with an explicit fallback configuration.
func FileWithConfig(ctx context.Context, path string, cfg FFmpegConfig) (Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Signal{}, &DecodeError{Source: path, Err: err}
	}
	if len(data) == 0 {
		return Signal{}, ErrEmptyInput
	}

	if isWAV(data) {
		sig, err := Bytes(data)
		if err != nil {
			if errors.Is(err, ErrEmptyInput) {
				return Signal{}, err
			}
			return Signal{}, &DecodeError{Source: path, Err: err}
		}
		return sig, nil
	}

	samples, err := decodeWithFFmpeg(ctx, path, cfg)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) {
			return Signal{}, err
		}
		return Signal{}, &DecodeError{Source: path, Err: err}
	}

	// ffmpeg already emits mono PCM at the analysis rate
	removeDCOffset(samples)

	logging.Debug("decoded audio file", logging.Fields{
		"path":    path,
		"samples": len(samples),
	})

	return Signal{Samples: samples, SampleRate: AnalysisRate}, nil
}

// Bytes decodes an in-memory RIFF/WAVE buffer into a prepared Signal.
func Bytes(data []byte) (Signal, error) {
	interleaved, fmtInfo, err := parseWAV(data)
	if err != nil {
		return Signal{}, err
	}

	mono := downmixMono(interleaved, fmtInfo.channels)

	out := mono
	if fmtInfo.sampleRate != AnalysisRate {
		out, err = resampleTo(mono, fmtInfo.sampleRate, AnalysisRate)
		if err != nil {
			return Signal{}, err
		}
	}
	if len(out) == 0 {
		return Signal{}, ErrEmptyInput
	}

	removeDCOffset(out)

	return Signal{Samples: out, SampleRate: AnalysisRate}, nil
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
