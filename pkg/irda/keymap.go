// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Jan Vacek

package irda

import "strings"

// KeyInfo describes one projector remote key: the byte the host sends in
// projector-mode payloads, the name the tools use, and the NEC code the
// scheduler emits for it.
type KeyInfo struct {
	Key  byte
	Name string
	Code uint32
}

// keyTable is the single source of truth for the projector remote.
// Lookups are driven by this table, not hardcoded branches.
var keyTable = []KeyInfo{
	{KeyPower, "POWER", CodePower},
	{KeyMenu, "MENU", CodeMenu},
	{KeyInput, "INPUT", CodeInput},
	{KeyOK, "OK", CodeOK},
	{KeyEsc, "ESC", CodeEsc},
	{KeyMute, "MUTE", CodeMute},
	{KeyUp, "UP", CodeUp},
	{KeyLeft, "LEFT", CodeLeft},
	{KeyRight, "RIGHT", CodeRight},
	{KeyDown, "DOWN", CodeDown},
	{KeyVolumeUp, "VOL_UP", CodeVolumeUp},
	{KeyVolumeDown, "VOL_DOWN", CodeVolumeDown},
}

var (
	keyCodes = buildKeyCodes()
	keyNames = buildKeyNames()
)

// buildKeyCodes expands the key table into the lookup map the scheduler
// uses. Keys are case-insensitive unless the other case is itself a table
// entry ('M'/'m' are menu/mute, 'V'/'v' are volume up/down).
func buildKeyCodes() map[byte]uint32 {
	codes := make(map[byte]uint32, 2*len(keyTable))
	for _, k := range keyTable {
		codes[k.Key] = k.Code
	}
	for _, k := range keyTable {
		other := swapCase(k.Key)
		if _, taken := codes[other]; !taken {
			codes[other] = k.Code
		}
	}
	return codes
}

func buildKeyNames() map[byte]string {
	names := make(map[byte]string, len(keyTable))
	for _, k := range keyTable {
		names[k.Key] = k.Name
	}
	return names
}

func swapCase(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a' + 'A'
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 'a'
	default:
		return c
	}
}

// LookupKey resolves a projector key byte to its NEC code.
// Returns false for unmapped keys; the scheduler skips those silently.
func LookupKey(key byte) (uint32, bool) {
	code, ok := keyCodes[key]
	return code, ok
}

// Keys returns the projector remote's key table in display order
func Keys() []KeyInfo {
	out := make([]KeyInfo, len(keyTable))
	copy(out, keyTable)
	return out
}

// NameForKey returns the display name of a key byte, or "" if unmapped.
// Lowercase aliases of caseless keys resolve to the canonical entry.
func NameForKey(key byte) string {
	if name, ok := keyNames[key]; ok {
		return name
	}
	// Case-insensitive aliases share the canonical entry's name
	if _, mapped := keyCodes[key]; mapped {
		if name, ok := keyNames[swapCase(key)]; ok {
			return name
		}
	}
	return ""
}

// KeyForName resolves a key name ("power", "VOL_UP", "vol+") or a literal
// key character ("P") to the protocol key byte.
func KeyForName(name string) (byte, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	switch normalized {
	case "VOL+", "VOLUP", "VOLUME_UP":
		normalized = "VOL_UP"
	case "VOL_", "VOLDOWN", "VOLUME_DOWN":
		normalized = "VOL_DOWN"
	}
	for _, k := range keyTable {
		if k.Name == normalized {
			return k.Key, true
		}
	}
	if len(name) == 1 {
		if _, ok := LookupKey(name[0]); ok {
			return name[0], true
		}
	}
	return 0, false
}
