// Package headers parses raw "Name: Value" header blocks into ordered
// name/value pairs and extracts mail addresses from header text. It is a
// stateless text utility; the transport consumes only its output.
package headers

import (
	"log/slog"
	"regexp"
	"strings"
)

type Header struct {
	Name  string
	Value string
}

var addressPattern = regexp.MustCompile(`^[^\s@<>,]+@[^\s@<>,]+$`)

// Parse flattens the given header blocks into an ordered header list.
// Continuation lines (leading space or tab) unfold into the value of the
// preceding header. When the same name occurs more than once, the entry
// keeps the position of its first occurrence but the value of its last.
// Malformed lines are logged and skipped; they never abort parsing.
func Parse(blocks []string) []Header {
	var parsed []Header
	index := map[string]int{} // lowercased name -> position in parsed

	for _, block := range blocks {
		block = strings.ReplaceAll(block, "\r\n", "\n")
		current := -1 // position of the header a continuation line belongs to

		for _, line := range strings.Split(block, "\n") {
			if line == "" {
				continue
			}

			if line[0] == ' ' || line[0] == '\t' {
				if current < 0 {
					slog.Warn("Continuation line without a header, skipping", "line", line)
					continue
				}
				parsed[current].Value += " " + strings.TrimLeft(line, " \t")
				continue
			}

			name, value, ok := strings.Cut(line, ":")
			if !ok || strings.TrimSpace(name) == "" {
				slog.Warn("Malformed header line, skipping", "line", line)
				current = -1
				continue
			}

			name = strings.TrimSpace(name)
			value = strings.TrimSpace(value)
			key := strings.ToLower(name)

			if at, seen := index[key]; seen {
				parsed[at].Value = value
				current = at
				continue
			}

			parsed = append(parsed, Header{Name: name, Value: value})
			index[key] = len(parsed) - 1
			current = len(parsed) - 1
		}
	}

	return parsed
}

// ValidAddress reports whether addr is a syntactically plausible mail
// address (one @, no whitespace or angle brackets on either side).
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// ExtractAddresses pulls the addresses out of a recipient-style header
// value: comma-separated entries in either bare ("a@b") or display-name
// ("Name <a@b>") form. Malformed entries are reported as warnings and
// excluded; they do not fail the extraction.
func ExtractAddresses(value string) []string {
	var addrs []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		addr := entry
		if open := strings.IndexByte(entry, '<'); open >= 0 {
			end := strings.IndexByte(entry, '>')
			if end <= open {
				slog.Warn("Malformed address entry, skipping", "entry", entry)
				continue
			}
			addr = entry[open+1 : end]
		}

		if !ValidAddress(addr) {
			slog.Warn("Invalid address, skipping", "address", addr)
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}
