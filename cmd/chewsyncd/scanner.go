package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Identification source
// ============================================================================
// The visual scanner itself is external. This daemon consumes it as a black
// box that produces one candidate per poll: a text token plus a decoded-region
// area acting as a confidence gate. The production adapter wraps a scanner
// process emitting "<text> <area>" lines on stdout; tests substitute the
// interface directly.
// ============================================================================

// Scan is one gated identification candidate.
type Scan struct {
	Text string
	Area float64
}

// IdentificationSource yields identifications that already passed the
// confidence gate. Poll blocks until a scan arrives or ctx is done.
type IdentificationSource interface {
	Poll(ctx context.Context) (Scan, bool, error)
}

// gateScan rejects empty decodes and regions too small to be trustworthy.
func gateScan(text string, area, minArea float64) bool {
	return text != "" && area > minArea
}

// execScanner runs the external scanner command and forwards gated scans.
// If the process exits, it is restarted after a short delay; the scanner
// dying is a transient condition, not a daemon failure.
type execScanner struct {
	command []string
	minArea float64
	metrics *Metrics
	logger  *slog.Logger

	scans chan Scan
}

func startExecScanner(ctx context.Context, command []string, minArea float64, metrics *Metrics, logger *slog.Logger) (*execScanner, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("scanner command is empty")
	}
	s := &execScanner{
		command: command,
		minArea: minArea,
		metrics: metrics,
		logger:  logger,
		scans:   make(chan Scan, 16),
	}
	go s.supervise(ctx)
	return s, nil
}

func (s *execScanner) Poll(ctx context.Context) (Scan, bool, error) {
	select {
	case <-ctx.Done():
		return Scan{}, false, ctx.Err()
	case scan := <-s.scans:
		return scan, true, nil
	}
}

func (s *execScanner) supervise(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.runOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("scanner process stopped; restarting", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(scannerRestartDelay):
		}
	}
}

func (s *execScanner) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("scanner stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start scanner: %w", err)
	}
	s.logger.Info("scanner started", "command", s.command[0])

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		scan, ok := s.parseLine(scanner.Text())
		if !ok {
			continue
		}
		select {
		case s.scans <- scan:
		case <-ctx.Done():
			_ = cmd.Wait()
			return ctx.Err()
		default:
			// Consumer is busy with a fetch cycle; a dropped duplicate frame
			// is harmless because the worker debounces by identification.
			s.metrics.ScansDropped.Inc()
			s.logger.Debug("scan dropped, queue full", "text", scan.Text)
		}
	}
	return cmd.Wait()
}

// parseLine parses "<text> <area>". A missing area counts as zero, which the
// gate rejects unless min_area is negative.
func (s *execScanner) parseLine(line string) (Scan, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Scan{}, false
	}
	scan := Scan{Text: fields[0]}
	if len(fields) > 1 {
		if a, err := strconv.ParseFloat(fields[1], 64); err == nil {
			scan.Area = a
		}
	}
	if !gateScan(scan.Text, scan.Area, s.minArea) {
		return Scan{}, false
	}
	return scan, true
}
