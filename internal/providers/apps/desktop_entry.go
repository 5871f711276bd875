package apps

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DesktopEntry is the subset of a freedesktop.org desktop entry the bridge reads
type DesktopEntry struct {
	Type      string
	Name      string
	Icon      string
	Exec      string
	TryExec   string
	Path      string
	Terminal  bool
	NoDisplay bool
	Hidden    bool
}

const desktopEntryGroup = "[Desktop Entry]"

// ParseDesktopEntry reads the [Desktop Entry] group. Localized keys and other
// groups (actions) are ignored.
func ParseDesktopEntry(r io.Reader) (*DesktopEntry, error) {
	entry := &DesktopEntry{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inGroup := false
	sawGroup := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") {
			inGroup = line == desktopEntryGroup
			if inGroup {
				sawGroup = true
			}
			continue
		}
		if !inGroup {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: missing '='", ErrInvalidEntry, lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Type":
			entry.Type = value
		case "Name":
			entry.Name = unescapeValue(value)
		case "Icon":
			entry.Icon = unescapeValue(value)
		case "Exec":
			entry.Exec = unescapeValue(value)
		case "TryExec":
			entry.TryExec = unescapeValue(value)
		case "Path":
			entry.Path = unescapeValue(value)
		case "Terminal":
			entry.Terminal = parseBool(value)
		case "NoDisplay":
			entry.NoDisplay = parseBool(value)
		case "Hidden":
			entry.Hidden = parseBool(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawGroup {
		return nil, fmt.Errorf("%w: no %s group", ErrInvalidEntry, desktopEntryGroup)
	}

	return entry, nil
}

// IsApplication reports whether the entry describes an application
func (e *DesktopEntry) IsApplication() bool {
	return e.Type == "" || e.Type == "Application"
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// unescapeValue applies the string-value escapes: \s \n \t \r \\
func unescapeValue(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\\' || i+1 == len(v) {
			b.WriteByte(c)
			continue
		}
		i++
		switch v[i] {
		case 's':
			b.WriteByte(' ')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// SplitExec tokenizes an Exec value. Arguments may be double-quoted; inside
// quotes a backslash escapes ", `, $ and \.
func SplitExec(exec string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		hasTok  bool
	)

	for i := 0; i < len(exec); i++ {
		c := exec[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(exec) && strings.IndexByte("\"`$\\", exec[i+1]) >= 0:
			i++
			cur.WriteByte(exec[i])
		case c == '"':
			inQuote = !inQuote
			hasTok = true
		case !inQuote && (c == ' ' || c == '\t'):
			if hasTok {
				args = append(args, cur.String())
				cur.Reset()
				hasTok = false
			}
		default:
			cur.WriteByte(c)
			hasTok = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote in Exec", ErrInvalidEntry)
	}
	if hasTok {
		args = append(args, cur.String())
	}
	return args, nil
}

// ExpandFieldCodes resolves Exec field codes for a launch with no files or
// URLs. Arguments that consist only of a file/URL code are dropped.
func ExpandFieldCodes(args []string, entry *DesktopEntry, location string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "%f", "%F", "%u", "%U", "%d", "%D", "%n", "%N", "%v", "%m":
			continue
		case "%i":
			if entry.Icon != "" {
				out = append(out, "--icon", entry.Icon)
			}
			continue
		}

		if !strings.Contains(arg, "%") {
			out = append(out, arg)
			continue
		}

		var b strings.Builder
		for i := 0; i < len(arg); i++ {
			if arg[i] != '%' || i+1 == len(arg) {
				b.WriteByte(arg[i])
				continue
			}
			i++
			switch arg[i] {
			case '%':
				b.WriteByte('%')
			case 'c':
				b.WriteString(entry.Name)
			case 'k':
				b.WriteString(location)
			default:
				// other codes expand to nothing inside an argument
			}
		}
		if b.Len() > 0 {
			out = append(out, b.String())
		}
	}
	return out
}
