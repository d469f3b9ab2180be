// Package player implements the playback core: a demux goroutine feeding
// two independent decode goroutines through bounded packet queues, an
// audio output driver that derives the authoritative playback clock from
// bytes the sink actually consumed, and a sync controller that paces
// video rendering against that clock. Windowing, GPU upload, container
// parsing and codec internals live behind the collaborator interfaces
// defined here.
package player

import (
	"errors"

	"github.com/zsiec/loopview/internal/media"
)

// ErrEndOfStream is returned by Source.ReadNextUnit at the end of the
// container. It is not an error condition; the demux stage loops or
// signals end-of-file.
var ErrEndOfStream = errors.New("end of stream")

// ErrWouldBlock is returned by decoders when no frame is available yet
// for the submitted input, due to internal buffering.
var ErrWouldBlock = errors.New("decoder would block")

// SourceInfo describes an opened media source.
type SourceInfo struct {
	HasVideo bool
	HasAudio bool
	Duration float64 // seconds
	Width    int
	Height   int

	// AudioFormat is the source's native PCM layout after decode, before
	// normalization to media.OutputFormat.
	AudioFormat media.PCMFormat
}

// Source is the media source collaborator: a container being read
// sequentially, with seek support.
type Source interface {
	Info() SourceInfo
	// ReadNextUnit returns the next compressed unit in container order,
	// ErrEndOfStream at the end, or a read error.
	ReadNextUnit() (media.Packet, error)
	Seek(seconds float64) error
	Close() error
}

// VideoDecoder is the per-stream decoder collaborator for video. Submit
// hands it one compressed unit; ReceiveFrame drains zero or more decoded
// frames, returning ErrWouldBlock when the decoder needs more input.
type VideoDecoder interface {
	Submit(pkt media.Packet) error
	ReceiveFrame() (media.VideoFrame, error)
	Flush()
	Close() error
}

// AudioDecoder is the per-stream decoder collaborator for audio. Decoded
// buffers come out in the decoder's native format (SourceInfo.AudioFormat);
// the audio decode stage normalizes them.
type AudioDecoder interface {
	Submit(pkt media.Packet) error
	ReceiveFrame() (media.AudioBuffer, error)
	Flush()
	Close() error
}

// VideoSink is the presentation collaborator. Present is called only from
// the render tick, with a frame already dequeued; ownership transfers to
// the sink for the duration of the call.
type VideoSink interface {
	Present(frame media.VideoFrame)
}

// AudioSink is the OS audio output collaborator. Write may accept only a
// prefix of the buffer; BytesQueued reports PCM bytes submitted but not
// yet audible.
type AudioSink interface {
	Write(p []byte) (int, error)
	BytesQueued() int
	SetVolumeHint(volume int) // 0-100, secondary to the core's own scaling
	Clear()
}

// Opener constructs the source and decoders for a path. Implemented by
// the FFmpeg binding in the shell and by synth for tests and the demo.
type Opener interface {
	OpenSource(path string) (Source, error)
	OpenVideoDecoder(info SourceInfo, preferHardware bool, device *media.DeviceContext) (VideoDecoder, error)
	OpenAudioDecoder(info SourceInfo) (AudioDecoder, error)
}
