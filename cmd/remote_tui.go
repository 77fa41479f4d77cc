// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Jan Vacek

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vam-vam/Artik/pkg/irda"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	pollIntervalSeconds = 5 // Read the register window every N seconds
)

// Focus states
const (
	focusKeyList = iota
	focusRawInput
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// remoteKey wraps a key table entry for the list widget
type remoteKey struct {
	info irda.KeyInfo
}

// list.Item implementation
func (k remoteKey) Title() string       { return k.info.Name }
func (k remoteKey) Description() string { return fmt.Sprintf("NEC 0x%08X", k.info.Code) }
func (k remoteKey) FilterValue() string { return k.info.Name }

// remoteLogEntry is one line in the event log
type remoteLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// remoteModel is the Bubble Tea model for the remote TUI
type remoteModel struct {
	// Tunnel ownership, shared with the reader goroutines
	connMgr  *connectionManager
	connInfo string

	// Key table
	keys    []irda.KeyInfo
	keyList list.Model

	// Raw burst entry
	rawInput textinput.Model

	// Monitoring
	stats         *irda.Statistics
	eventLog      []remoteLogEntry
	maxLogEntries int

	// Last register window from the peripheral. lastBank is the
	// capacity of the bank our last write selected; echoes are length
	// only, so this is the best guess for cursor arithmetic.
	lastWindow     []byte
	lastWindowTime time.Time
	lastBank       int

	// UI state
	focusedField   int
	width          int
	height         int
	synchronized   bool
	quitting       bool
	connectionLost bool

	// Poll state
	lastPollTime time.Time
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type remoteTickMsg time.Time

type remoteDataMsg struct {
	frame            *irda.Frame
	decodeErr        error
	validationErrors []irda.ValidationError
}

type remoteSyncMsg struct {
	invalidBytes int
}

type remoteBatchMsg struct {
	messages []remoteDataMsg
	syncMsg  *remoteSyncMsg
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialRemoteModel(connMgr *connectionManager, connInfo string) remoteModel {
	// Initialize text input for raw duration words
	ti := textinput.New()
	ti.Placeholder = "2328 1194 232 690"
	ti.CharLimit = 200
	ti.Width = 40

	// Initialize key list from the key table
	keys := irda.Keys()
	items := make([]list.Item, len(keys))
	for i, k := range keys {
		items[i] = remoteKey{info: k}
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	keyList := list.New(items, delegate, 30, 10)
	keyList.Title = "Keys"
	keyList.SetShowStatusBar(false)
	keyList.SetShowHelp(false)
	keyList.SetFilteringEnabled(false)

	return remoteModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		keys:          keys,
		keyList:       keyList,
		rawInput:      ti,
		stats:         irda.NewStatistics(),
		eventLog:      make([]remoteLogEntry, 0),
		maxLogEntries: 100,
		lastBank:      irda.CommandBufferSize,
		focusedField:  focusKeyList,
		width:         80,
		height:        24,
		synchronized:  false,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m remoteModel) Init() tea.Cmd {
	return remoteTickCmd()
}

func remoteTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return remoteTickMsg(t)
	})
}

func (m remoteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case remoteTickMsg:
		m.stats.CalculateRates()
		// Keep the register window fresh
		if !m.connectionLost && time.Since(m.lastPollTime) >= time.Duration(pollIntervalSeconds)*time.Second {
			m.lastPollTime = time.Now()
			sendReadPoll(m.connMgr.getConn())
		}
		return m, remoteTickCmd()

	case remoteSyncMsg:
		m.noteSync(msg.invalidBytes)

	case remoteBatchMsg:
		if msg.syncMsg != nil {
			m.noteSync(msg.syncMsg.invalidBytes)
		}
		for _, data := range msg.messages {
			m.processRemoteData(data)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost, reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.lastWindow = nil
		m.synchronized = false
		m.addLogEntry("Reconnected", false)
	}

	// Forward everything else to whichever widget has focus
	var cmd tea.Cmd
	switch m.focusedField {
	case focusRawInput:
		m.rawInput, cmd = m.rawInput.Update(msg)
	case focusKeyList:
		m.keyList, cmd = m.keyList.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// noteSync records that the decoder locked onto the tunnel stream.
func (m *remoteModel) noteSync(invalidBytes int) {
	m.synchronized = true
	if invalidBytes > 0 {
		m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", invalidBytes), false)
	} else {
		m.addLogEntry("Synchronized", false)
	}
}

func (m *remoteModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m.handleEnter()

	case "up", "k":
		if m.focusedField == focusKeyList {
			m.keyList, _ = m.keyList.Update(msg)
		}

	case "down", "j":
		if m.focusedField == focusKeyList {
			m.keyList, _ = m.keyList.Update(msg)
		}
	}

	// Unhandled keystrokes go to the text input when it holds focus
	if m.focusedField == focusRawInput {
		var cmd tea.Cmd
		m.rawInput, cmd = m.rawInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *remoteModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	// Mouse only drives the key list
	m.keyList, _ = m.keyList.Update(msg)

	return m, nil
}

func (m *remoteModel) cycleFocus(delta int) *remoteModel {
	m.focusedField = (m.focusedField + delta + 2) % 2

	if m.focusedField == focusRawInput {
		m.rawInput.Focus()
	} else {
		m.rawInput.Blur()
	}

	return m
}

func (m *remoteModel) handleEnter() (tea.Model, tea.Cmd) {
	// Don't allow sends while connection is lost
	if m.connectionLost {
		m.addLogEntry("Cannot send: connection lost", true)
		return m, nil
	}

	switch m.focusedField {
	case focusKeyList:
		return m.sendSelectedKey()
	case focusRawInput:
		return m.sendRawBurst()
	}

	return m, nil
}

// remotePalette bundles the lipgloss styles one View pass needs, so the
// render helpers stay short.
type remotePalette struct {
	title   lipgloss.Style
	dim     lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	alert   lipgloss.Style
	warn    lipgloss.Style
	panel   lipgloss.Style
	focused lipgloss.Style
}

func newRemotePalette() remotePalette {
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	return remotePalette{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		value:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		alert:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		panel:   panel,
		focused: panel.BorderForeground(lipgloss.Color("12")),
	}
}

func (m remoteModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	st := newRemotePalette()

	// Header
	s.WriteString(st.title.Render("ARTIK REMOTE"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = st.warn.Render("RECONNECTING...")
	}
	s.WriteString(st.dim.Render(fmt.Sprintf("| %s | addr 0x%02X | q=quit Tab=switch Enter=send", connStatus, busAddress)))
	s.WriteString("\n\n")

	// Layout: left panel (keys) | right panel (raw entry + window)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := st.panel
	if m.focusedField == focusKeyList {
		listStyle = st.focused
	}
	keyPanel := listStyle.Width(leftWidth).Render(m.keyList.View())

	peripheralStyle := st.panel
	if m.focusedField == focusRawInput {
		peripheralStyle = st.focused
	}
	peripheralPanel := peripheralStyle.Width(rightWidth).Render(m.renderPeripheralPanel(st))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, keyPanel, " ", peripheralPanel))
	s.WriteString("\n\n")

	s.WriteString(m.renderStatisticsBar(st))
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog(st))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m remoteModel) renderPeripheralPanel(st remotePalette) string {
	var s strings.Builder

	s.WriteString(st.label.Render("Raw burst: "))
	if m.focusedField == focusRawInput {
		s.WriteString(m.rawInput.View())
	} else {
		// Unfocused input renders as dim text, placeholder included
		val := m.rawInput.Value()
		if val == "" {
			val = m.rawInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n")
	s.WriteString(st.dim.Render("hex duration words, mark first"))
	s.WriteString("\n\n")

	// Register window from the last echo
	s.WriteString(st.label.Render("Register window"))
	s.WriteString("\n")
	if m.lastWindow == nil {
		s.WriteString(st.dim.Render("(no echo yet)"))
		return s.String()
	}

	age := time.Since(m.lastWindowTime).Round(time.Second)
	s.WriteString(fmt.Sprintf("%s %s  %s %s\n",
		st.label.Render("Slots:"),
		st.value.Render(fmt.Sprintf("%d", len(m.lastWindow))),
		st.label.Render("Age:"),
		st.value.Render(age.String())))

	if cursor := m.lastBank - len(m.lastWindow); cursor >= 0 && len(m.lastWindow) <= m.lastBank {
		s.WriteString(fmt.Sprintf("%s %s\n",
			st.label.Render("Cursor:"),
			st.value.Render(fmt.Sprintf("slot %d", cursor))))
	}

	// A full command window starts at the count slot, so the queue is visible
	if len(m.lastWindow) == irda.CommandBufferSize {
		count := int(m.lastWindow[0])
		if count == 0 {
			s.WriteString(st.value.Render("Queue empty"))
		} else {
			names := make([]string, 0, count)
			for i := 1; i <= count && i < len(m.lastWindow); i++ {
				name := irda.NameForKey(m.lastWindow[i])
				if name == "" {
					name = fmt.Sprintf("0x%02X", m.lastWindow[i])
				}
				names = append(names, name)
			}
			s.WriteString(st.warn.Render(fmt.Sprintf("Queued: %s", strings.Join(names, " "))))
		}
	}

	return s.String()
}

func (m remoteModel) renderStatisticsBar(st remotePalette) string {
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		totalErrors := m.stats.CRCErrors + m.stats.DecodeErrors + m.stats.MalformedFrames + m.stats.AnomalousValues
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalFrames)
	}

	errors := st.value.Render("0.0%")
	if errorPercent > 0 {
		errors = st.alert.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		st.label.Render("Total:"), st.value.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		st.label.Render("Valid:"), st.value.Render(fmt.Sprintf("%.1f%%", validPercent)),
		st.label.Render("Errors:"), errors,
		st.label.Render("Rate:"), st.value.Render(fmt.Sprintf("%.1f frm/s", m.stats.FrameRate)),
	)

	return st.panel.Width(m.width - 4).Render(content)
}

func (m remoteModel) renderEventLog(st remotePalette) string {
	var s strings.Builder
	s.WriteString(st.label.Render("EVENTS"))
	s.WriteString("\n")

	if len(m.eventLog) == 0 {
		s.WriteString(st.dim.Render("  (no events yet)"))
		return st.panel.Width(m.width - 4).Render(s.String())
	}

	// Newest entries at the bottom, up to eight lines
	start := len(m.eventLog) - 8
	if start < 0 {
		start = 0
	}
	for _, entry := range m.eventLog[start:] {
		icon, style := "i", st.warn
		if entry.isError {
			icon, style = "x", st.alert
		}
		s.WriteString(fmt.Sprintf("%s %s %s\n",
			st.dim.Render(entry.timestamp.Format("15:04:05.000")),
			style.Render(icon),
			entry.message))
	}

	return st.panel.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *remoteModel) processRemoteData(msg remoteDataMsg) {
	if msg.decodeErr != nil {
		if m.synchronized {
			m.stats.Update(nil, msg.decodeErr, nil)
			m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", msg.decodeErr), true)
		}
		return
	}

	if msg.frame == nil {
		return
	}

	m.stats.Update(msg.frame, nil, msg.validationErrors)

	// Echoes from our peripheral refresh the register window
	if msg.frame.IsEcho() && msg.frame.Address() == busAddress {
		m.lastWindow = msg.frame.Payload()
		m.lastWindowTime = time.Now()
		return
	}

	// Everything else on the bus is only interesting when it is broken
	if len(msg.validationErrors) > 0 {
		direction := irda.FormatDirection(msg.frame.Direction())
		for _, err := range msg.validationErrors {
			m.addLogEntry(fmt.Sprintf("%s: %s", direction, err.Message), true)
		}
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m *remoteModel) sendSelectedKey() (tea.Model, tea.Cmd) {
	selected := m.getSelectedKey()
	if selected == nil {
		return m, nil
	}

	wire := irda.MustEncodeFrame(irda.NewKeyWrite(busAddress, selected.Key))
	conn := m.connMgr.getConn()
	if conn == nil {
		m.addLogEntry("Cannot send: connection lost", true)
		return m, nil
	}
	if _, err := conn.Write(wire); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send %s: %v", selected.Name, err), true)
		return m, nil
	}

	m.addLogEntry(fmt.Sprintf("Sent %s to 0x%02X", selected.Name, busAddress), false)
	m.lastBank = irda.CommandBufferSize

	// Follow up with a read so the queue shows before the next tick eats it
	m.lastPollTime = time.Now()
	sendReadPoll(conn)
	return m, nil
}

func (m *remoteModel) sendRawBurst() (tea.Model, tea.Cmd) {
	fields := strings.Fields(m.rawInput.Value())
	if len(fields) == 0 {
		m.addLogEntry("Nothing to send: enter hex duration words", true)
		return m, nil
	}

	words, err := parseBurstWords(fields)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}
	if len(words) > irda.RawBufferSize {
		m.addLogEntry(fmt.Sprintf("Burst too long: %d words (bank holds %d)", len(words), irda.RawBufferSize), true)
		return m, nil
	}

	wire, err := irda.NewRawWrite(busAddress, words).Encode()
	if err != nil {
		m.addLogEntry(fmt.Sprintf("Encode failed: %v", err), true)
		return m, nil
	}

	conn := m.connMgr.getConn()
	if conn == nil {
		m.addLogEntry("Cannot send: connection lost", true)
		return m, nil
	}
	if _, err := conn.Write(wire); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send burst: %v", err), true)
		return m, nil
	}

	total := irda.PulseDuration(irda.BurstPulses(words))
	m.addLogEntry(fmt.Sprintf("Sent %d-word burst to 0x%02X (%v)", len(words), busAddress, total), false)
	m.lastBank = irda.RawBufferSize

	m.lastPollTime = time.Now()
	sendReadPoll(conn)
	return m, nil
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *remoteModel) addLogEntry(message string, isError bool) {
	entry := remoteLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m *remoteModel) getSelectedKey() *irda.KeyInfo {
	if len(m.keys) == 0 {
		return nil
	}

	idx := m.keyList.Index()
	if idx < 0 || idx >= len(m.keys) {
		return nil
	}

	return &m.keys[idx]
}

func (m *remoteModel) updateListSize() {
	// Half the terminal, never so short the list loses its title
	listHeight := m.height / 2
	if listHeight < 5 {
		listHeight = 5
	}
	m.keyList.SetSize(28, listHeight)
}
