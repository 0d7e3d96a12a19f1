package vcard

import (
	"strings"
	"unicode/utf8"
)

// maxLineOctets is the folding width for the first physical line. Continuation
// lines carry one leading space and maxLineOctets-1 octets of content.
const maxLineOctets = 75

// FoldLine splits a logical content line into physical lines joined by CRLF.
// A split never lands inside a multi-byte UTF-8 sequence.
func FoldLine(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}
	var b strings.Builder
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	return b.String()
}

// UnfoldLines joins continuation lines onto their predecessor and returns the
// non-empty logical lines. A leading byte-order mark is dropped.
func UnfoldLines(text string) []string {
	normalized := strings.TrimPrefix(text, "\ufeff")
	normalized = strings.ReplaceAll(normalized, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\n ", "")
	normalized = strings.ReplaceAll(normalized, "\n\t", "")

	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// property is one decoded content line.
type property struct {
	Name   string
	Params []string
	Value  string
}

// parseLine splits a logical line at the first colon that is not inside a
// quoted parameter value. Apple style group prefixes (item1.EMAIL) are dropped.
func parseLine(line string) (property, bool) {
	inQuotes := false
	sep := -1
	for i := 0; i < len(line) && sep < 0; i++ {
		switch {
		case line[i] == '"':
			inQuotes = !inQuotes
		case line[i] == ':' && !inQuotes:
			sep = i
		}
	}
	if sep <= 0 {
		return property{}, false
	}

	head := strings.Split(line[:sep], ";")
	name := strings.ToUpper(strings.TrimSpace(head[0]))
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		name = name[dot+1:]
	}
	if name == "" {
		return property{}, false
	}
	return property{Name: name, Params: head[1:], Value: line[sep+1:]}, true
}

// paramsUpper joins the raw parameters for substring based type detection.
func (p property) paramsUpper() string {
	return strings.ToUpper(strings.Join(p.Params, ";"))
}

// param returns the value of the named parameter, with quotes removed.
func (p property) param(name string) string {
	for _, raw := range p.Params {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.Trim(strings.TrimSpace(value), "\"")
		}
	}
	return ""
}

// EscapeValue escapes a text value for use in a content line.
func EscapeValue(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// UnescapeValue reverses EscapeValue in a single pass. Unknown escapes are
// kept as written.
func UnescapeValue(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch next {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(next)
		default:
			b.WriteByte(c)
			b.WriteByte(next)
		}
		i++
	}
	return b.String()
}

// splitUnescaped splits a structured value on sep, ignoring escaped
// separators, and unescapes every component.
func splitUnescaped(s string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, UnescapeValue(s[start:i]))
			start = i + 1
		}
	}
	return append(parts, UnescapeValue(s[start:]))
}

func component(parts []string, idx int) string {
	if idx < len(parts) {
		return strings.TrimSpace(parts[idx])
	}
	return ""
}
