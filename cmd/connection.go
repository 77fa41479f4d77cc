// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection carries raw tunnel bytes between a command and the bench
// adapter, regardless of whether the tunnel is a serial port or a
// WebSocket relay.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed reports a read on a tunnel that already went away.
// Reader loops treat it as a clean shutdown rather than noise.
var ErrConnectionClosed = errors.New("websocket connection closed")

// serialTunnel adapts a serial.Port to the Connection interface.
type serialTunnel struct {
	port serial.Port
}

func (t *serialTunnel) Read(p []byte) (int, error)  { return t.port.Read(p) }
func (t *serialTunnel) Write(p []byte) (int, error) { return t.port.Write(p) }
func (t *serialTunnel) Close() error                { return t.port.Close() }

// wsTunnel adapts a message-oriented WebSocket to the byte-stream
// Connection interface. Each binary message is parked in pending and
// drained across as many Read calls as it takes.
type wsTunnel struct {
	conn    *websocket.Conn
	pending *bytes.Reader
	dead    bool
}

func (t *wsTunnel) Read(p []byte) (int, error) {
	if t.dead {
		return 0, ErrConnectionClosed
	}
	if t.pending != nil && t.pending.Len() > 0 {
		return t.pending.Read(p)
	}
	// Text and control messages are relay chatter; the tunnel payload
	// only ever travels in binary messages.
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			t.dead = true
			return 0, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		t.pending = bytes.NewReader(data)
		return t.pending.Read(p)
	}
}

func (t *wsTunnel) Write(p []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *wsTunnel) Close() error {
	return t.conn.Close()
}

// dialSerial opens the port 8N1 at the configured rate.
func dialSerial(device string, baud int) (Connection, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", device, err)
	}
	return &serialTunnel{port: port}, nil
}

// dialWebSocket connects to a ws:// or wss:// relay, authenticating with
// HTTP Basic auth when a username is set.
func dialWebSocket(rawURL, username, password string, skipVerify bool) (Connection, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipVerify}
	}

	header := http.Header{}
	if username != "" && password != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		header.Set("Authorization", "Basic "+auth)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}
	return &wsTunnel{conn: conn}, nil
}

// promptPassword resolves the relay password: ARTIK_PASSWORD wins, an
// interactive terminal gets a hidden prompt, anything else (pipes, CI)
// falls back to a plain line read.
func promptPassword() (string, error) {
	if pw := os.Getenv("ARTIK_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %v", err)
	}
	return strings.TrimSpace(line), nil
}

// OpenConnection dials whichever tunnel the persistent flags select and
// returns it with a short human-readable description. --url takes
// precedence so a bench profile can keep a default --port around.
func OpenConnection() (Connection, string, error) {
	switch {
	case wsURL != "":
		password := ""
		if wsUsername != "" {
			var err error
			if password, err = promptPassword(); err != nil {
				return nil, "", err
			}
		}
		conn, err := dialWebSocket(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil

	case portName != "":
		conn, err := dialSerial(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil

	default:
		return nil, "", fmt.Errorf("either --port or --url must be specified")
	}
}
