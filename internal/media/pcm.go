package media

import "encoding/binary"

// ScaleVolume scales interleaved S16 samples in place by volume/100.
// volume 100 leaves the data untouched, 0 silences it.
func ScaleVolume(data []byte, volume int) {
	if volume >= 100 {
		return
	}
	if volume < 0 {
		volume = 0
	}
	for i := 0; i+1 < len(data); i += 2 {
		s := int16(binary.LittleEndian.Uint16(data[i:]))
		scaled := int32(s) * int32(volume) / 100
		binary.LittleEndian.PutUint16(data[i:], uint16(int16(scaled)))
	}
}

// ConvertPCM converts interleaved S16 audio from one format to another:
// channel up/downmix first, then linear sample-rate conversion. Good
// enough for playback normalization; not a polyphase resampler.
func ConvertPCM(data []byte, from, to PCMFormat) []byte {
	if from == to {
		return data
	}

	samples := decodeS16(data, from.Channels)
	if from.Channels != to.Channels {
		samples = remix(samples, from.Channels, to.Channels)
	}
	if from.SampleRate != to.SampleRate {
		samples = resampleLinear(samples, from.SampleRate, to.SampleRate)
	}
	return encodeS16(samples)
}

// decodeS16 splits interleaved bytes into per-frame sample vectors.
func decodeS16(data []byte, channels int) [][]int16 {
	frameBytes := channels * 2
	n := len(data) / frameBytes
	out := make([][]int16, n)
	for i := 0; i < n; i++ {
		frame := make([]int16, channels)
		for c := 0; c < channels; c++ {
			off := i*frameBytes + c*2
			frame[c] = int16(binary.LittleEndian.Uint16(data[off:]))
		}
		out[i] = frame
	}
	return out
}

func encodeS16(frames [][]int16) []byte {
	if len(frames) == 0 {
		return nil
	}
	channels := len(frames[0])
	out := make([]byte, len(frames)*channels*2)
	for i, frame := range frames {
		for c, s := range frame {
			binary.LittleEndian.PutUint16(out[(i*channels+c)*2:], uint16(s))
		}
	}
	return out
}

// remix converts channel counts: mono to stereo duplicates, stereo to
// mono averages. Other layouts fold down to the first target channels.
func remix(frames [][]int16, from, to int) [][]int16 {
	out := make([][]int16, len(frames))
	for i, frame := range frames {
		mixed := make([]int16, to)
		switch {
		case from == 1:
			for c := 0; c < to; c++ {
				mixed[c] = frame[0]
			}
		case to == 1:
			var sum int32
			for _, s := range frame {
				sum += int32(s)
			}
			mixed[0] = int16(sum / int32(from))
		default:
			for c := 0; c < to; c++ {
				mixed[c] = frame[c%from]
			}
		}
		out[i] = mixed
	}
	return out
}

// resampleLinear converts the sample rate by linear interpolation between
// neighboring frames.
func resampleLinear(frames [][]int16, from, to int) [][]int16 {
	if len(frames) == 0 || from == to {
		return frames
	}
	channels := len(frames[0])
	outLen := int(int64(len(frames)) * int64(to) / int64(from))
	if outLen == 0 {
		outLen = 1
	}
	out := make([][]int16, outLen)
	for i := 0; i < outLen; i++ {
		pos := float64(i) * float64(from) / float64(to)
		idx := int(pos)
		frac := pos - float64(idx)
		next := idx + 1
		if next >= len(frames) {
			next = len(frames) - 1
		}
		frame := make([]int16, channels)
		for c := 0; c < channels; c++ {
			a := float64(frames[idx][c])
			b := float64(frames[next][c])
			frame[c] = int16(a + (b-a)*frac)
		}
		out[i] = frame
	}
	return out
}
