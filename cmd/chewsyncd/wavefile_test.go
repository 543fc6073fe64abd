package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWav writes a mono 16-bit WAV whose sample values are the frame
// indices, so ring reads can be verified byte for byte.
func writeTestWav(t *testing.T, path string, sampleRate, frames int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, frames),
	}
	for i := range buf.Data {
		buf.Data[i] = i
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}
}

// frameValue decodes the little-endian int16 sample of frame i in pcm.
func frameValue(pcm []byte, i int) int {
	return int(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
}

func TestOpenWaveAsset_ReadsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.wav")
	writeTestWav(t, path, 8000, 100)

	a, err := OpenWaveAsset(path)
	if err != nil {
		t.Fatalf("OpenWaveAsset() error = %v", err)
	}
	defer a.Close()

	format := a.Format()
	if format.Channels != 1 || format.BytesPerSample != 2 || format.FrameRate != 8000 {
		t.Errorf("Format() = %+v", format)
	}
	if a.TotalFrames() != 100 {
		t.Errorf("TotalFrames() = %d, want 100", a.TotalFrames())
	}
}

func TestWaveAsset_SequentialReads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.wav")
	writeTestWav(t, path, 8000, 100)

	a, err := OpenWaveAsset(path)
	if err != nil {
		t.Fatalf("OpenWaveAsset() error = %v", err)
	}
	defer a.Close()

	pcm, err := a.ReadFrames(30)
	if err != nil {
		t.Fatalf("ReadFrames(30) error = %v", err)
	}
	if len(pcm) != 60 {
		t.Fatalf("len = %d, want 60", len(pcm))
	}
	if frameValue(pcm, 0) != 0 || frameValue(pcm, 29) != 29 {
		t.Errorf("first read frames = %d..%d, want 0..29", frameValue(pcm, 0), frameValue(pcm, 29))
	}

	pcm, err = a.ReadFrames(30)
	if err != nil {
		t.Fatalf("second ReadFrames(30) error = %v", err)
	}
	if frameValue(pcm, 0) != 30 || frameValue(pcm, 29) != 59 {
		t.Errorf("second read frames = %d..%d, want 30..59", frameValue(pcm, 0), frameValue(pcm, 29))
	}
}

func TestWaveAsset_RingWraparound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.wav")
	writeTestWav(t, path, 8000, 100)

	a, err := OpenWaveAsset(path)
	if err != nil {
		t.Fatalf("OpenWaveAsset() error = %v", err)
	}
	defer a.Close()

	// Advance to frame 80, then read 50: 20 from the tail, 30 from the head.
	if _, err := a.ReadFrames(80); err != nil {
		t.Fatalf("advance error = %v", err)
	}
	pcm, err := a.ReadFrames(50)
	if err != nil {
		t.Fatalf("wrapping ReadFrames(50) error = %v", err)
	}
	if len(pcm) != 100 {
		t.Fatalf("len = %d, want 100", len(pcm))
	}
	if frameValue(pcm, 0) != 80 || frameValue(pcm, 19) != 99 {
		t.Errorf("tail portion = %d..%d, want 80..99", frameValue(pcm, 0), frameValue(pcm, 19))
	}
	if frameValue(pcm, 20) != 0 || frameValue(pcm, 49) != 29 {
		t.Errorf("head portion = %d..%d, want 0..29", frameValue(pcm, 20), frameValue(pcm, 49))
	}
	if a.Cursor() != 30 {
		t.Errorf("Cursor() = %d, want 30", a.Cursor())
	}
}

func TestWaveAsset_ReadLongerThanAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.wav")
	writeTestWav(t, path, 8000, 10)

	a, err := OpenWaveAsset(path)
	if err != nil {
		t.Fatalf("OpenWaveAsset() error = %v", err)
	}
	defer a.Close()

	// More frames than the asset holds: the ring loops multiple times.
	pcm, err := a.ReadFrames(25)
	if err != nil {
		t.Fatalf("ReadFrames(25) error = %v", err)
	}
	if len(pcm) != 50 {
		t.Fatalf("len = %d, want 50", len(pcm))
	}
	for i := 0; i < 25; i++ {
		if got, want := frameValue(pcm, i), i%10; got != want {
			t.Fatalf("frame %d = %d, want %d", i, got, want)
		}
	}
	if a.Cursor() != 5 {
		t.Errorf("Cursor() = %d, want 5", a.Cursor())
	}
}

func TestOpenWaveAsset_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-wav.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenWaveAsset(path); err == nil {
		t.Error("OpenWaveAsset() error = nil for garbage file")
	}
}
