package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ============================================================================
// Asset retrieval
// ============================================================================
// Audio assets are downloaded to a temporary file next to the live asset and
// moved into place with an atomic rename so the serial event worker never
// opens a partially-written file. An optional external trim transform runs
// between download and rename; a transform failure falls back to the raw
// download.
// ============================================================================

// TrimTransform runs an external command that produces a cleaned asset from a
// raw download. Command arguments may contain the {in} and {out} placeholders.
type TrimTransform struct {
	Command []string
	Timeout time.Duration
}

// Apply runs the transform on in and returns the path of the transformed
// file. The input file is left untouched.
func (t *TrimTransform) Apply(ctx context.Context, in string) (string, error) {
	if len(t.Command) == 0 {
		return "", fmt.Errorf("trim command is empty")
	}
	out := in + ".trimmed"

	runCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(t.Command))
	for _, a := range t.Command {
		a = strings.ReplaceAll(a, "{in}", in)
		a = strings.ReplaceAll(a, "{out}", out)
		args = append(args, a)
	}

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("trim command: %w (%s)", err, strings.TrimSpace(string(output)))
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("trim command produced no output: %w", err)
	}
	return out, nil
}

// AssetFetcher downloads audio assets and installs them as the live asset
// file: GET {base}/{identification}/audio.
type AssetFetcher struct {
	base      string
	client    *http.Client
	assetPath string
	trim      *TrimTransform
	logger    *slog.Logger
}

func NewAssetFetcher(baseURL, assetPath string, timeout time.Duration, trim *TrimTransform, logger *slog.Logger) (*AssetFetcher, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if assetPath == "" {
		return nil, fmt.Errorf("asset path is empty")
	}
	return &AssetFetcher{
		base:      baseURL,
		client:    &http.Client{Timeout: timeout},
		assetPath: assetPath,
		trim:      trim,
		logger:    logger,
	}, nil
}

// Fetch downloads the asset for id and atomically replaces the live asset
// file. Nothing is replaced unless the full download (and rename) succeeds.
func (f *AssetFetcher) Fetch(ctx context.Context, id string) error {
	reqURL := fmt.Sprintf("%s/%s/audio", f.base, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build audio request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch audio: unexpected status %d", resp.StatusCode)
	}

	dir := filepath.Dir(f.assetPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".audio-*.wav")
	if err != nil {
		return fmt.Errorf("create temp asset: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp asset: %w", err)
	}

	install := tmpName
	if f.trim != nil {
		trimmed, err := f.trim.Apply(ctx, tmpName)
		if err != nil {
			// Degrade to the raw asset; trimming is best effort.
			f.logger.Warn("trim transform failed; using raw asset",
				"identification", id, "error", err)
		} else {
			defer os.Remove(trimmed)
			install = trimmed
		}
	}

	if err := os.Rename(install, f.assetPath); err != nil {
		return fmt.Errorf("install asset: %w", err)
	}
	return nil
}

func (f *AssetFetcher) AssetPath() string { return f.assetPath }
