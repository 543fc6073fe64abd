package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ============================================================================
// Serial transport
// ============================================================================
// The link is a single full-duplex stream: the serial event worker is the
// only reader, the dispatcher the only writer. The mutex here guards only the
// port handle itself so a reconnect never races a concurrent write against a
// closed handle.
//
// Failing to open the port at startup is fatal for the daemon; once running,
// read/write errors trigger reconnects with a fixed backoff and never bring
// a worker down.
// ============================================================================

// LineTransport is the line-level view of the serial link used by the serial
// event worker and the dispatcher. Faked in tests.
type LineTransport interface {
	ReadLine(ctx context.Context) (string, error)
	WriteLine(line string) error
	Reconnect(ctx context.Context) error
}

type SerialLink struct {
	device string
	mode   *serial.Mode
	logger *slog.Logger

	mu   sync.Mutex
	port serial.Port

	// Reader-owned buffers; ReadLine is single-goroutine by contract.
	pending []byte
	readBuf []byte
}

// OpenSerialLink opens the port or fails. No retry here: startup open
// failures are operator errors (wrong device path, missing permissions).
func OpenSerialLink(device string, baud int, logger *slog.Logger) (*SerialLink, error) {
	l := &SerialLink{
		device: device,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		logger:  logger,
		readBuf: make([]byte, 256),
	}
	port, err := l.open()
	if err != nil {
		return nil, err
	}
	l.port = port
	return l, nil
}

func (l *SerialLink) open() (serial.Port, error) {
	port, err := serial.Open(l.device, l.mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", l.device, err)
	}
	if err := port.SetReadTimeout(defaultSerialReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}

func (l *SerialLink) current() serial.Port {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// ReadLine blocks until a full newline-terminated line arrives, the transport
// fails, or ctx is done. The read timeout on the port bounds how long a
// cancellation can go unnoticed.
func (l *SerialLink) ReadLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.IndexByte(l.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(l.pending[:i]))
			l.pending = l.pending[i+1:]
			return line, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		port := l.current()
		if port == nil {
			return "", fmt.Errorf("serial port is closed")
		}
		n, err := port.Read(l.readBuf)
		if err != nil {
			return "", fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			continue // read timeout; loop re-checks ctx
		}
		l.pending = append(l.pending, l.readBuf[:n]...)
	}
}

// WriteLine writes line plus a terminating newline and drains the output
// buffer so the device sees the command immediately.
func (l *SerialLink) WriteLine(line string) error {
	port := l.current()
	if port == nil {
		return fmt.Errorf("serial port is closed")
	}
	if _, err := port.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if err := port.Drain(); err != nil {
		return fmt.Errorf("serial drain: %w", err)
	}
	return nil
}

// Reconnect closes the current handle and reopens the port with a fixed
// backoff until it succeeds or ctx is done.
func (l *SerialLink) Reconnect(ctx context.Context) error {
	l.mu.Lock()
	if l.port != nil {
		l.port.Close()
		l.port = nil
	}
	l.mu.Unlock()
	l.pending = l.pending[:0]

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		port, err := l.open()
		if err == nil {
			l.mu.Lock()
			l.port = port
			l.mu.Unlock()
			l.logger.Info("serial port reconnected", "device", l.device)
			return nil
		}
		l.logger.Warn("serial reconnect failed; retrying", "device", l.device, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(serialReconnectDelay):
		}
	}
}

func (l *SerialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil
	return err
}
