package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// ============================================================================
// chewsync-ctl - Command-line IPC Client
// ============================================================================
// This tool sends commands to the chewsyncd daemon via its unix socket.
//
// Usage:
//   chewsync-ctl inject <identifier>
//   chewsync-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/chewsync.sock)
// ============================================================================

// Command types (duplicated from the daemon for a standalone binary)
type injectCommand struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type statusCommand struct {
	Type string `json:"type"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

func main() {
	socketPath := "/tmp/chewsync.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var command any

	switch args[0] {
	case "inject":
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: inject requires an identifier\n")
			os.Exit(1)
		}
		command = injectCommand{Type: "inject_identification", ID: args[1]}

	case "status":
		command = statusCommand{Type: "status"}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	resp, err := sendCommand(socketPath, command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Result) > 0 {
		fmt.Println(string(resp.Result))
	} else {
		fmt.Println("ok")
	}
}

func sendCommand(socketPath string, command any) (IPCResponse, error) {
	var resp IPCResponse

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return resp, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := json.Marshal(command)
	if err != nil {
		return resp, fmt.Errorf("marshal command: %w", err)
	}

	// Send command (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return resp, fmt.Errorf("send command: %w", err)
	}

	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status == "error" {
		return resp, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return resp, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `chewsync-ctl - Control the chewsyncd daemon via IPC

Usage:
  chewsync-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/chewsync.sock)

Commands:
  inject <identifier>    Feed an identification as if it had been scanned
  status                 Print the daemon's coordination snapshot as JSON
  help, -h, --help       Show this help message

Examples:
  chewsync-ctl inject gummy-bear-7
  chewsync-ctl status
  chewsync-ctl -socket /var/run/chewsync.sock status
`)
}
