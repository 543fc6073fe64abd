package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player plays a PCM slice to completion before returning. The blocking
// contract matters: playback duration is what paces the serial event worker
// between close events.
type Player interface {
	Play(pcm []byte, format PCMFormat) error
}

// otoPlayer renders PCM through the system output device.
//
// oto allows a single context per process with a fixed sample rate, so the
// context is created lazily from the first asset's format. A later asset with
// a different format still plays, through the existing context, with a
// warning; matching assets sound correct, mismatched ones play pitched.
type otoPlayer struct {
	mu     sync.Mutex
	ctx    *oto.Context
	format PCMFormat
	logger *slog.Logger
}

func newOtoPlayer(logger *slog.Logger) *otoPlayer {
	return &otoPlayer{logger: logger}
}

func otoFormat(bytesPerSample int) (oto.Format, error) {
	switch bytesPerSample {
	case 1:
		return oto.FormatUnsignedInt8, nil
	case 2:
		return oto.FormatSignedInt16LE, nil
	default:
		return 0, fmt.Errorf("unsupported sample width: %d bytes", bytesPerSample)
	}
}

func (p *otoPlayer) ensureContext(format PCMFormat) (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		if format != p.format {
			p.logger.Warn("asset format differs from output context; playing anyway",
				"context_rate", p.format.FrameRate, "asset_rate", format.FrameRate,
				"context_channels", p.format.Channels, "asset_channels", format.Channels)
		}
		return p.ctx, nil
	}

	otoFmt, err := otoFormat(format.BytesPerSample)
	if err != nil {
		return nil, err
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.FrameRate,
		ChannelCount: format.Channels,
		Format:       otoFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready

	p.ctx = ctx
	p.format = format
	return ctx, nil
}

// Play blocks until the whole slice has been rendered.
func (p *otoPlayer) Play(pcm []byte, format PCMFormat) error {
	if len(pcm) == 0 {
		return nil
	}
	ctx, err := p.ensureContext(format)
	if err != nil {
		return err
	}

	pl := ctx.NewPlayer(bytes.NewReader(pcm))
	pl.Play()
	for pl.IsPlaying() {
		time.Sleep(playbackPollInterval)
	}
	if err := pl.Close(); err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	return nil
}
