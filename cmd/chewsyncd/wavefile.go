package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// PCMFormat describes the fixed stream parameters of an open asset.
type PCMFormat struct {
	Channels       int
	BytesPerSample int
	FrameRate      int
}

func (f PCMFormat) frameSize() int { return f.Channels * f.BytesPerSample }

// AudioAsset is a seekable PCM source supporting exact-length ring reads.
// Implemented by WaveAsset; faked in tests.
type AudioAsset interface {
	Format() PCMFormat
	TotalFrames() int64
	// ReadFrames returns exactly n frames starting at the read cursor,
	// wrapping to the beginning of the asset when the end is reached, and
	// advances the cursor by n (mod total). The cursor is untouched on error.
	ReadFrames(n int64) ([]byte, error)
	Close() error
}

// WaveAsset wraps a local WAV file. The container header is parsed once at
// open; frames are then addressed directly in the data chunk so extraction
// can wrap without re-parsing.
type WaveAsset struct {
	f         *os.File
	format    PCMFormat
	dataStart int64
	frames    int64
	cursor    int64 // frame index into the data chunk
}

// OpenWaveAsset opens and validates path. The format is fixed for the life of
// the handle; a replaced file requires a re-open.
func OpenWaveAsset(path string) (*WaveAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("parse wav header: %w", err)
	}
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("locate pcm chunk: %w", err)
	}

	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pcm offset: %w", err)
	}

	format := PCMFormat{
		Channels:       int(dec.NumChans),
		BytesPerSample: int(dec.BitDepth) / 8,
		FrameRate:      int(dec.SampleRate),
	}
	if format.Channels <= 0 || format.BytesPerSample <= 0 || format.FrameRate <= 0 {
		f.Close()
		return nil, fmt.Errorf("unusable wav format: %dch %dbit %dHz", dec.NumChans, dec.BitDepth, dec.SampleRate)
	}

	frames := dec.PCMLen() / int64(format.frameSize())
	if frames <= 0 {
		f.Close()
		return nil, fmt.Errorf("asset has no audio frames")
	}

	return &WaveAsset{
		f:         f,
		format:    format,
		dataStart: dataStart,
		frames:    frames,
	}, nil
}

func (a *WaveAsset) Format() PCMFormat  { return a.format }
func (a *WaveAsset) TotalFrames() int64 { return a.frames }
func (a *WaveAsset) Cursor() int64      { return a.cursor }

func (a *WaveAsset) Close() error { return a.f.Close() }

// ReadFrames treats the data chunk as a ring buffer: a read that runs past the
// end continues from frame zero, so the result always has exactly n frames.
func (a *WaveAsset) ReadFrames(n int64) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	frameSize := int64(a.format.frameSize())
	out := make([]byte, 0, n*frameSize)

	cursor := a.cursor
	remaining := n
	for remaining > 0 {
		if cursor >= a.frames {
			cursor = 0
		}
		chunk := remaining
		if avail := a.frames - cursor; chunk > avail {
			chunk = avail
		}
		buf := make([]byte, chunk*frameSize)
		read, err := a.f.ReadAt(buf, a.dataStart+cursor*frameSize)
		if err != nil && !(err == io.EOF && int64(read) == int64(len(buf))) {
			return nil, fmt.Errorf("read %d frames at %d: %w", chunk, cursor, err)
		}
		out = append(out, buf...)
		cursor = (cursor + chunk) % a.frames
		remaining -= chunk
	}

	a.cursor = cursor
	return out, nil
}
