// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vam-vam/Artik/pkg/irda"
)

// batchFlushInterval caps how often decoded frames wake the TUI. Tunnel
// traffic can burst faster than bubbletea should repaint.
const batchFlushInterval = 50 * time.Millisecond

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Interactive TUI remote control",
	Long: `Drive the infrared peripheral from an interactive terminal UI.

The left panel lists the projector remote keys; Enter sends the selected
key as a projector-mode write. The raw entry field takes hex duration
words for one-off bursts. A read request every few seconds keeps the
register window in view, so you can watch the peripheral consume what
you queue.

Features:
  - Projector key list with NEC codes
  - Raw burst entry (hex duration words)
  - Live register window and cursor position
  - Statistics tracking
  - Event logging
  - Automatic reconnection on connection loss

Tab switches between the key list and the raw entry field. Arrow keys
navigate the list. Supports both serial and WebSocket connections.`,
	RunE: runRemote,
}

func init() {
	rootCmd.AddCommand(remoteCmd)
}

// connectionManager owns the tunnel for the remote TUI: it feeds decoded
// frames to the bubbletea program and swaps the connection out underneath
// it when the tunnel drops and comes back.
type connectionManager struct {
	mu       sync.RWMutex
	conn     Connection
	connInfo string

	ui   *tea.Program
	done chan struct{}
}

func (cm *connectionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	cm.conn = conn
	cm.connInfo = connInfo
	cm.mu.Unlock()
}

func (cm *connectionManager) shuttingDown() bool {
	select {
	case <-cm.done:
		return true
	default:
		return false
	}
}

func runRemote(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	cm := &connectionManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	m := initialRemoteModel(cm, connInfo)
	cm.ui = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go cm.readerLoop()

	// First poll straight away so the window panel fills before the
	// periodic tick gets around to it.
	sendReadPoll(cm.getConn())

	_, err = cm.ui.Run()
	close(cm.done)
	cm.getConn().Close()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// readerLoop keeps a decode pipeline attached to whatever connection is
// current, reconnecting until shutdown.
func (cm *connectionManager) readerLoop() {
	for !cm.shuttingDown() {
		if lost := cm.pumpFrames(); !lost {
			return
		}
		cm.ui.Send(connectionLostMsg{})
		if !cm.reconnect() {
			return
		}
	}
}

// pumpFrames decodes tunnel bytes into TUI messages until the connection
// fails (returns true) or shutdown is requested (returns false).
func (cm *connectionManager) pumpFrames() bool {
	decoder := irda.NewDecoder()
	synchronized := false
	invalidBytes := 0

	frameChan := make(chan remoteDataMsg, 100)
	syncChan := make(chan remoteSyncMsg, 1)
	readDone := make(chan struct{})

	// Decode side: pull bytes, push per-frame messages. Sends never
	// block; a full channel drops the oldest-view update, which the
	// next batch makes up for.
	go func() {
		defer close(readDone)
		buf := make([]byte, 128)
		for !cm.shuttingDown() {
			conn := cm.getConn()
			if conn == nil {
				return
			}

			n, err := conn.Read(buf)
			if err != nil {
				if cm.shuttingDown() || err == ErrConnectionClosed {
					return
				}
				// Serial reads surface transient errors; back off briefly
				time.Sleep(10 * time.Millisecond)
				continue
			}

			for _, b := range buf[:n] {
				frame, decodeErr := decoder.DecodeByte(b)
				if decodeErr != nil {
					if !synchronized {
						invalidBytes++
						continue
					}
					select {
					case frameChan <- remoteDataMsg{decodeErr: decodeErr}:
					default:
					}
					continue
				}
				if frame == nil {
					continue
				}
				if !synchronized {
					synchronized = true
					select {
					case syncChan <- remoteSyncMsg{invalidBytes: invalidBytes}:
					default:
					}
				}
				select {
				case frameChan <- remoteDataMsg{
					frame:            frame,
					validationErrors: irda.ValidateFrame(frame),
				}:
				default:
				}
			}
		}
	}()

	// Batch side: collect whatever accumulated and hand it to the TUI
	// once per flush interval.
	go func() {
		flush := time.NewTicker(batchFlushInterval)
		defer flush.Stop()
		for {
			select {
			case <-cm.done:
				return
			case <-readDone:
				return
			case <-flush.C:
			}

			var batch remoteBatchMsg
			select {
			case s := <-syncChan:
				batch.syncMsg = &s
			default:
			}
			for draining := true; draining; {
				select {
				case msg := <-frameChan:
					batch.messages = append(batch.messages, msg)
				default:
					draining = false
				}
			}
			if batch.syncMsg != nil || len(batch.messages) > 0 {
				cm.ui.Send(batch)
			}
		}
	}()

	<-readDone
	return !cm.shuttingDown()
}

// reconnect redials with doubling backoff until it succeeds or shutdown
// is requested.
func (cm *connectionManager) reconnect() bool {
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	delay := time.Second
	const maxDelay = 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(delay):
		}

		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)
			cm.ui.Send(reconnectedMsg{connInfo: connInfo})
			sendReadPoll(conn)
			return true
		}

		if delay *= 2; delay > maxDelay {
			delay = maxDelay
		}
	}
}

// sendReadPoll asks the peripheral for its register window
func sendReadPoll(conn Connection) {
	if conn == nil {
		return
	}
	wire := irda.MustEncodeFrame(irda.NewReadRequest(busAddress))
	conn.Write(wire)
}
