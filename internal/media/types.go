// Package media defines the data model shared by the playback pipeline:
// compressed packets, decoded video frames, PCM audio buffers and the
// fixed output format audio is normalized to.
package media

import "fmt"

// StreamType identifies which elementary stream a packet belongs to.
type StreamType uint8

const (
	StreamUnknown StreamType = iota
	StreamVideo
	StreamAudio
)

// String returns the string representation of StreamType
func (s StreamType) String() string {
	switch s {
	case StreamVideo:
		return "video"
	case StreamAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Packet is one demuxed, still-encoded unit of a single stream. A packet
// with Flush set carries no payload; it marks a discontinuity (seek or
// loop restart) and tells the decode stage to reset.
type Packet struct {
	Stream StreamType
	Data   []byte
	PTS    float64 // presentation time in seconds
	Flush  bool
}

// FlushPacket returns a flush marker for the given stream.
func FlushPacket(stream StreamType) Packet {
	return Packet{Stream: stream, Flush: true}
}

// Picture is the tagged content of a decoded video frame. Exactly one of
// the two concrete types is used per frame; the renderer dispatches on the
// type and cannot silently fall through.
type Picture interface {
	isPicture()
}

// CPUPicture is a software-path frame: pixel data after color-space
// conversion, resident in process memory.
type CPUPicture struct {
	Data   []byte
	Stride int
	Width  int
	Height int
}

func (CPUPicture) isPicture() {}

// GPUPicture is a hardware-path frame: an opaque device-resident handle.
// Any access to the handle must hold the owning DeviceContext, since the
// decoder may touch the device concurrently with the render tick.
type GPUPicture struct {
	Handle uint64
	Width  int
	Height int
	Device *DeviceContext
}

func (GPUPicture) isPicture() {}

// VideoFrame is one decoded, presentable video image.
type VideoFrame struct {
	Picture Picture
	PTS     float64 // presentation time in seconds
}

// IsHardware reports whether the frame took the hardware decode path.
func (f VideoFrame) IsHardware() bool {
	_, ok := f.Picture.(GPUPicture)
	return ok
}

// AudioBuffer is one block of interleaved signed 16-bit PCM samples in the
// fixed output format. Volume scaling is applied exactly once per buffer;
// VolumeApplied guards against rescaling on partial-write retries.
type AudioBuffer struct {
	Data          []byte
	PTS           float64 // presentation time in seconds
	VolumeApplied bool
}

// Duration returns the play time of the buffer in the given format.
func (b AudioBuffer) Duration(f PCMFormat) float64 {
	return float64(len(b.Data)) / float64(f.ByteRate())
}

// PCMFormat describes interleaved signed 16-bit PCM.
type PCMFormat struct {
	SampleRate int
	Channels   int
}

// ByteRate returns bytes of PCM per second.
func (f PCMFormat) ByteRate() int {
	return f.SampleRate * f.Channels * 2
}

// BytesPerFrame returns the size of one sample across all channels.
func (f PCMFormat) BytesPerFrame() int {
	return f.Channels * 2
}

func (f PCMFormat) String() string {
	return fmt.Sprintf("s16le %dHz %dch", f.SampleRate, f.Channels)
}

// OutputFormat is the fixed format every audio buffer is normalized to
// before entering the audio frame queue.
var OutputFormat = PCMFormat{SampleRate: 44100, Channels: 2}
