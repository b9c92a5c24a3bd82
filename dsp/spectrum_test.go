package dsp

import (
	"math"
	"testing"
)

func TestNewHannCoefficients(t *testing.T) {
	h := NewHann(8)

	if h.Size() != 8 {
		t.Fatalf("size = %d, want 8", h.Size())
	}

	// Periodic Hann starts at zero and peaks at size/2
	applied := h.Apply([]float64{1, 1, 1, 1, 1, 1, 1, 1})
	if math.Abs(applied[0]) > 1e-12 {
		t.Errorf("w[0] = %f, want 0", applied[0])
	}
	if math.Abs(applied[4]-1) > 1e-12 {
		t.Errorf("w[4] = %f, want 1", applied[4])
	}
}

func TestNewFrontEndValidation(t *testing.T) {
	if _, err := NewFrontEnd(1000, 256); err == nil {
		t.Error("expected error for non-power-of-two window")
	}
	if _, err := NewFrontEnd(512, 128); err == nil {
		t.Error("expected error for window below minimum")
	}
	if _, err := NewFrontEnd(1024, 0); err == nil {
		t.Error("expected error for zero hop")
	}
	if _, err := NewFrontEnd(2048, 512); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSpectrumSineBin(t *testing.T) {
	const (
		winSize    = 1024
		sampleRate = 44100
	)
	fe, err := NewFrontEnd(winSize, 256)
	if err != nil {
		t.Fatal(err)
	}

	// A sine exactly on bin 64 concentrates its energy there
	bin := 64
	freq := float64(bin) * float64(sampleRate) / float64(winSize)
	frame := make([]float64, winSize)
	for i := range frame {
		frame[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}

	spectrum := fe.Spectrum(frame)
	if len(spectrum) != winSize/2+1 {
		t.Fatalf("spectrum length = %d, want %d", len(spectrum), winSize/2+1)
	}

	peakBin := 0
	for i, mag := range spectrum {
		if mag > spectrum[peakBin] {
			peakBin = i
		}
	}
	if peakBin != bin {
		t.Errorf("peak at bin %d, want %d", peakBin, bin)
	}
}

func TestFramesCount(t *testing.T) {
	fe, err := NewFrontEnd(1024, 512)
	if err != nil {
		t.Fatal(err)
	}

	signal := make([]float64, 4096)
	frames := fe.Frames(signal, false)

	want := (4096-1024)/512 + 1
	if len(frames) != want {
		t.Errorf("frames = %d, want %d", len(frames), want)
	}
}

func TestFramesShortSignal(t *testing.T) {
	fe, err := NewFrontEnd(1024, 256)
	if err != nil {
		t.Fatal(err)
	}

	if frames := fe.Frames(make([]float64, 100), false); frames != nil {
		t.Errorf("expected nil frames for short signal, got %d", len(frames))
	}
}

func TestBinFrequency(t *testing.T) {
	fe, err := NewFrontEnd(1024, 256)
	if err != nil {
		t.Fatal(err)
	}

	if got := fe.BinFrequency(0, 44100); got != 0 {
		t.Errorf("bin 0 = %f Hz, want 0", got)
	}

	want := float64(512) * 44100.0 / 1024.0
	if got := fe.BinFrequency(512, 44100); math.Abs(got-want) > 1e-9 {
		t.Errorf("Nyquist bin = %f Hz, want %f", got, want)
	}
}

func TestMagnitudeDC(t *testing.T) {
	frame := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	spectrum := Magnitude(frame)

	if len(spectrum) != 5 {
		t.Fatalf("length = %d, want 5", len(spectrum))
	}
	if math.Abs(spectrum[0]-8) > 1e-9 {
		t.Errorf("DC magnitude = %f, want 8", spectrum[0])
	}
	for i := 1; i < len(spectrum); i++ {
		if spectrum[i] > 1e-9 {
			t.Errorf("bin %d = %f, want 0", i, spectrum[i])
		}
	}
}
