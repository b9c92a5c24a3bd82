package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/sliceforge/sliceforge/logging"
)

// FFmpegConfig controls the external-decoder fallback used for sources
// that are not RIFF/WAVE.
type FFmpegConfig struct {
	Path    string        // ffmpeg binary, assumed in PATH by default
	Timeout time.Duration // per-file decode timeout
}

// DefaultFFmpegConfig returns the standard fallback configuration.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		Path:    "ffmpeg",
		Timeout: 30 * time.Second,
	}
}

// decodeWithFFmpeg shells out to ffmpeg and reads raw f64le mono PCM at
// the analysis rate from stdout. This covers mp3/flac/aiff/etc. without
// linking codec libraries.
func decodeWithFFmpeg(ctx context.Context, path string, cfg FFmpegConfig) ([]float64, error) {
	if cfg.Path == "" {
		cfg = DefaultFFmpegConfig()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(AnalysisRate),
		"pipe:1",
	}

	logging.Debug("decoding with ffmpeg", logging.Fields{
		"path":    path,
		"timeout": cfg.Timeout.String(),
	})

	cmd := exec.CommandContext(ctx, cfg.Path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w (%s)", err, stderr.String())
	}

	raw := stdout.Bytes()
	n := len(raw) / 8
	if n == 0 {
		return nil, ErrEmptyInput
	}

	samples := make([]float64, n)
	for i := range n {
		bits := binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples, nil
}
