package window

import (
	"fmt"
	"strconv"
	"strings"
)

// Parsers for the text emitted by the desktop tools the providers shell out
// to. They live in an untagged file so they are tested on every platform.

// parseX11ID converts "0x01e00003" or "31457283" to a decimal id string.
func parseX11ID(s string) (string, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ","))
	if s == "" {
		return "", false
	}
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil || n == 0 {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}

// parseStackingList parses `xprop -root _NET_CLIENT_LIST_STACKING`, e.g.
//
//	_NET_CLIENT_LIST_STACKING(WINDOW): window id # 0x1e00003, 0x2400007
//
// Ids are returned bottom-most first, the order the window manager uses.
func parseStackingList(out string) []string {
	_, list, ok := strings.Cut(out, "#")
	if !ok {
		return nil
	}
	var ids []string
	for _, field := range strings.Split(list, ",") {
		if id, ok := parseX11ID(field); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

type wmctrlWindow struct {
	id    string
	pid   int
	title string
}

// parseWmctrlList parses `wmctrl -l -p`:
//
//	0x01e00003  0 4242   host main.go - recursor - Cursor
func parseWmctrlList(out string) []wmctrlWindow {
	var windows []wmctrlWindow
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		id, ok := parseX11ID(fields[0])
		if !ok {
			continue
		}
		pid, _ := strconv.Atoi(fields[2]) //nolint:errcheck // 0 means unknown
		windows = append(windows, wmctrlWindow{
			id:    id,
			pid:   pid,
			title: strings.Join(fields[4:], " "),
		})
	}
	return windows
}

// parseWMClass returns the class part of `xprop -id N WM_CLASS`:
//
//	WM_CLASS(STRING) = "cursor", "Cursor"
func parseWMClass(out string) string {
	_, values, ok := strings.Cut(out, "=")
	if !ok {
		return ""
	}
	parts := strings.Split(values, ",")
	last := strings.TrimSpace(parts[len(parts)-1])
	return strings.Trim(last, `"`)
}

// parseAppleScriptWindow parses "app|pid|title|index". Titles may contain
// pipes, so the index is taken from the right. The window id becomes
// "pid:index".
func parseAppleScriptWindow(result string) (*Handle, error) {
	result = strings.TrimSpace(result)
	parts := strings.SplitN(result, "|", 3)
	if len(parts) < 2 || parts[0] == "" {
		return nil, fmt.Errorf("unexpected AppleScript output: %q", result)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("unexpected pid in AppleScript output %q: %w", result, err)
	}

	title, index := "", "1"
	if len(parts) == 3 {
		title = parts[2]
		if i := strings.LastIndex(parts[2], "|"); i >= 0 {
			title, index = parts[2][:i], parts[2][i+1:]
		}
	}
	if strings.TrimSpace(index) == "" {
		index = "1"
	}

	return &Handle{
		PID:      pid,
		WindowID: fmt.Sprintf("%d:%s", pid, strings.TrimSpace(index)),
		AppName:  parts[0],
		Title:    title,
	}, nil
}

// parseAppleScriptWindowList parses one "app|pid|title|index" per line and
// skips lines that don't parse.
func parseAppleScriptWindowList(out string) []Handle {
	var handles []Handle
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if h, err := parseAppleScriptWindow(line); err == nil {
			handles = append(handles, *h)
		}
	}
	return handles
}

type asnEntry struct {
	app string
	asn string
}

// parseBringForwardOrder parses the bringForwardOrder line from
// `lsappinfo metainfo`, frontmost first:
//
//	bringForwardOrder = "Cursor" ASN:0x0-0x1b01b: "Google Chrome" ASN:0x0-0x2c02c:
func parseBringForwardOrder(line string) []asnEntry {
	var entries []asnEntry
	rest := line
	for {
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			return entries
		}
		rest = rest[start+1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return entries
		}
		name := rest[:end]
		rest = strings.TrimLeft(rest[end+1:], " ")

		asnEnd := strings.IndexAny(rest, " \"")
		if asnEnd < 0 {
			asnEnd = len(rest)
		}
		asn := rest[:asnEnd]
		rest = rest[asnEnd:]

		if name != "" {
			entries = append(entries, asnEntry{app: name, asn: asn})
		}
	}
}

// parseASNInfo extracts the pid and parent ASN from `lsappinfo info <asn>`.
func parseASNInfo(out string) (pid int, parentASN string) {
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), `"`)
		value = strings.TrimSpace(value)
		switch key {
		case "pid":
			if fields := strings.Fields(value); len(fields) > 0 {
				if n, err := strconv.Atoi(fields[0]); err == nil {
					pid = n
				}
			}
		case "parentASN":
			parentASN = strings.Trim(value, `"`)
		}
	}
	return pid, parentASN
}

// escapeAppleScript makes s safe inside a double-quoted AppleScript string.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
