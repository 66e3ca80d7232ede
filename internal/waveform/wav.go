// SPDX-License-Identifier: MIT
package waveform

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// decodeWAV reads a PCM WAV file directly and returns interleaved stereo
// int16 samples. Samples wider than 16 bits are shifted down and mono input
// is duplicated onto both channels so the result matches the decoder
// subprocess contract.
func decodeWAV(path string) ([]int16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrEmptyOutput
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("waveform: wav reports %d channels", channels)
	}

	shift := uint(0)
	if buf.SourceBitDepth > 16 {
		shift = uint(buf.SourceBitDepth - 16)
	}

	frames := len(buf.Data) / channels
	pcm := make([]int16, 0, frames*decodeChannels)
	for i := 0; i < frames; i++ {
		l := int16(buf.Data[i*channels] >> shift)
		r := l
		if channels > 1 {
			r = int16(buf.Data[i*channels+1] >> shift)
		}
		pcm = append(pcm, l, r)
	}
	return pcm, nil
}
