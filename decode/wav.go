package decode

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

type wavFormat struct {
	audioFormat   int
	channels      int
	sampleRate    int
	bitsPerSample int
}

// parseWAV decodes a RIFF/WAVE byte buffer into interleaved float64
// samples in [-1, 1] plus its format description. Chunks other than
// "fmt " and "data" are skipped.
func parseWAV(data []byte) ([]float64, wavFormat, error) {
	var fmtInfo wavFormat

	if len(data) < 12 {
		return nil, fmtInfo, fmt.Errorf("file too small for RIFF header (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmtInfo, fmt.Errorf("not a RIFF/WAVE file")
	}

	var sampleData []byte
	haveFmt := false

	// Walk chunks
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmtInfo, fmt.Errorf("fmt chunk too small (%d bytes)", chunkSize)
			}
			fmtInfo.audioFormat = int(binary.LittleEndian.Uint16(data[body : body+2]))
			fmtInfo.channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			fmtInfo.sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			fmtInfo.bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			sampleData = data[body : body+chunkSize]
		}

		// Chunks are word-aligned
		if chunkSize%2 == 1 {
			chunkSize++
		}
		offset = body + chunkSize
	}

	if !haveFmt {
		return nil, fmtInfo, fmt.Errorf("missing fmt chunk")
	}
	if fmtInfo.channels <= 0 {
		return nil, fmtInfo, fmt.Errorf("unsupported channel layout: %d channels", fmtInfo.channels)
	}
	if len(sampleData) == 0 {
		return nil, fmtInfo, ErrEmptyInput
	}

	samples, err := decodeWAVSamples(sampleData, fmtInfo)
	if err != nil {
		return nil, fmtInfo, err
	}
	if len(samples) == 0 {
		return nil, fmtInfo, ErrEmptyInput
	}

	return samples, fmtInfo, nil
}

// decodeWAVSamples converts raw little-endian sample bytes to float64.
func decodeWAVSamples(raw []byte, fmtInfo wavFormat) ([]float64, error) {
	switch {
	case fmtInfo.audioFormat == wavFormatPCM && fmtInfo.bitsPerSample == 16:
		n := len(raw) / 2
		samples := make([]float64, n)
		for i := range n {
			v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
			samples[i] = float64(v) / 32768.0
		}
		return samples, nil

	case fmtInfo.audioFormat == wavFormatPCM && fmtInfo.bitsPerSample == 24:
		n := len(raw) / 3
		samples := make([]float64, n)
		for i := range n {
			b := raw[i*3 : i*3+3]
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			// Sign-extend from 24 bits
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			samples[i] = float64(v) / 8388608.0
		}
		return samples, nil

	case fmtInfo.audioFormat == wavFormatPCM && fmtInfo.bitsPerSample == 32:
		n := len(raw) / 4
		samples := make([]float64, n)
		for i := range n {
			v := int32(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
			samples[i] = float64(v) / 2147483648.0
		}
		return samples, nil

	case fmtInfo.audioFormat == wavFormatPCM && fmtInfo.bitsPerSample == 8:
		// 8-bit WAV is unsigned
		samples := make([]float64, len(raw))
		for i, b := range raw {
			samples[i] = (float64(b) - 128.0) / 128.0
		}
		return samples, nil

	case fmtInfo.audioFormat == wavFormatIEEEFloat && fmtInfo.bitsPerSample == 32:
		n := len(raw) / 4
		samples := make([]float64, n)
		for i := range n {
			bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
			samples[i] = float64(math.Float32frombits(bits))
		}
		return samples, nil

	case fmtInfo.audioFormat == wavFormatIEEEFloat && fmtInfo.bitsPerSample == 64:
		n := len(raw) / 8
		samples := make([]float64, n)
		for i := range n {
			bits := binary.LittleEndian.Uint64(raw[i*8 : i*8+8])
			samples[i] = math.Float64frombits(bits)
		}
		return samples, nil

	default:
		return nil, fmt.Errorf("unsupported WAV encoding: format %d, %d bits",
			fmtInfo.audioFormat, fmtInfo.bitsPerSample)
	}
}
