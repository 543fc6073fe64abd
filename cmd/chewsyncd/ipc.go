package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Line-delimited JSON over a unix socket. Clients send commands, the daemon
// answers each line with an ok/error response. Two commands exist:
//
//   {"type": "inject_identification", "id": "<target>"}
//       feeds an identification into the fetch worker as if it was scanned
//
//   {"type": "status"}
//       returns the current coordination snapshot in the response payload
//
// Used by chewsync-ctl and by scripted bring-up on devices with no camera.
// ============================================================================

// IPCResponse is the per-line reply sent back to IPC clients.
type IPCResponse struct {
	Status string          `json:"status"`           // "ok" or "error"
	Error  string          `json:"error,omitempty"`  // set when status == "error"
	Result json.RawMessage `json:"result,omitempty"` // command-specific payload
}

// StatusSnapshot is the result payload of the status command.
type StatusSnapshot struct {
	LatestID        string  `json:"latest_id"`
	HasParams       bool    `json:"has_params"`
	Chewiness       int     `json:"chewiness"`
	Firmness        int     `json:"firmness"`
	IntervalSamples int     `json:"interval_samples"`
	IntervalAverage float64 `json:"interval_average"`
}

// IPCHandler is what the socket server needs from the daemon side.
type IPCHandler interface {
	InjectIdentification(ctx context.Context, id string) error
	Snapshot() StatusSnapshot
}

// runIPCServer serves the unix socket until ctx is canceled, then closes the
// listener and removes the socket file.
func runIPCServer(ctx context.Context, socketPath string, handler IPCHandler, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(ctx, conn, handler, logger)
	}
}

func handleIPCConnection(ctx context.Context, conn net.Conn, handler IPCHandler, logger *slog.Logger) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		resp := dispatchIPCCommand(ctx, line, handler)
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}

	logger.Debug("IPC connection closed")
}

func dispatchIPCCommand(ctx context.Context, line string, handler IPCHandler) IPCResponse {
	if !gjson.Valid(line) {
		return IPCResponse{Status: "error", Error: "invalid JSON"}
	}

	switch cmd := gjson.Get(line, "type").String(); cmd {
	case "inject_identification":
		id := gjson.Get(line, "id").String()
		if id == "" {
			return IPCResponse{Status: "error", Error: "missing id"}
		}
		if err := handler.InjectIdentification(ctx, id); err != nil {
			return IPCResponse{Status: "error", Error: err.Error()}
		}
		return IPCResponse{Status: "ok"}

	case "status":
		result, err := json.Marshal(handler.Snapshot())
		if err != nil {
			return IPCResponse{Status: "error", Error: err.Error()}
		}
		return IPCResponse{Status: "ok", Result: result}

	default:
		return IPCResponse{Status: "error", Error: fmt.Sprintf("unknown command: %q", cmd)}
	}
}

// SendIPCCommand sends one command line to the daemon socket and returns the
// decoded response. Used by the socket tests; chewsync-ctl carries its own
// copy of the client side.
func SendIPCCommand(socketPath string, command []byte) (IPCResponse, error) {
	var resp IPCResponse

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return resp, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(command))); err != nil {
		return resp, fmt.Errorf("send command: %w", err)
	}

	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
