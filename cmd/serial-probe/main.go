package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.bug.st/serial"
)

// serial-probe is a line console for the chewing device. It echoes every line
// the device prints and forwards stdin lines to the device, which makes it
// handy for watching open/close events and hand-feeding control lines while
// chewsyncd is stopped.
func main() {
	var (
		device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
		baud    = flag.Int("baud", 115200, "Baud rate")
		command = flag.String("cmd", "", "Send a single line and exit (e.g. '75,150,50,55,50')")
	)
	flag.Parse()

	mode := &serial.Mode{
		BaudRate: *baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	log.Printf("opening %s @ %d...", *device, *baud)
	port, err := serial.Open(*device, mode)
	if err != nil {
		log.Fatalf("failed to open: %v", err)
	}
	defer port.Close()

	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		log.Fatalf("failed to set read timeout: %v", err)
	}

	// Mutex to protect concurrent writes to the port
	var writeMu sync.Mutex

	// Handle single command mode
	if *command != "" {
		sendLine(port, &writeMu, *command)
		return
	}

	log.Printf("connected! (press Ctrl+C to exit)")
	log.Printf("type a line and press Enter to send it to the device")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	// Device read loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		var pending []byte
		buf := make([]byte, 256)
		for {
			n, err := port.Read(buf)
			if err != nil {
				log.Printf("read error: %v", err)
				return
			}
			if n == 0 {
				continue
			}
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := strings.TrimSpace(string(pending[:i]))
				pending = pending[i+1:]
				if line != "" {
					fmt.Printf("[DEVICE] %s\n", line)
				}
			}
		}
	}()

	// Stdin input loop
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			sendLine(port, &writeMu, line)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
	case <-done:
		log.Printf("device disconnected")
	}
}

// sendLine writes one newline-terminated line to the port (thread-safe)
func sendLine(port serial.Port, writeMu *sync.Mutex, line string) {
	writeMu.Lock()
	defer writeMu.Unlock()

	if _, err := port.Write([]byte(line + "\n")); err != nil {
		log.Printf("error sending line: %v", err)
		return
	}
	if err := port.Drain(); err != nil {
		log.Printf("error draining: %v", err)
	}
}
