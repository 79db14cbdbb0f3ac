package transport

// foldLimit is the per-segment character budget for outbound data lines.
// Together with the CRLF terminator this keeps every wire line under the
// 998-character ceiling of RFC 5321.
const foldLimit = 989

// stuffDot doubles a leading dot so that the line cannot be mistaken for
// the end-of-data terminator (RFC 5321 §4.5.2).
func stuffDot(line string) string {
	if len(line) > 0 && line[0] == '.' {
		return "." + line
	}
	return line
}

// foldLine splits one logical line into the wire segments it is transmitted
// as. Segments after the first start with a single space, the fold marker a
// receiver strips when reassembling the logical line. Each fold shrinks the
// following segment's budget by one to pay for that marker.
func foldLine(line string) []string {
	if len(line) <= foldLimit {
		return []string{line}
	}

	var segments []string
	correction := 0
	rest := line
	for len(rest) > foldLimit-correction {
		n := foldLimit - correction
		if correction == 0 {
			segments = append(segments, rest[:n])
		} else {
			segments = append(segments, " "+rest[:n])
		}
		correction++
		rest = rest[n:]
	}
	segments = append(segments, " "+rest)
	return segments
}

// encodeDataLine applies dot-stuffing and folding to one logical data line.
func encodeDataLine(line string) []string {
	return foldLine(stuffDot(line))
}

// unfold reverses foldLine: it strips the fold marker from each continuation
// segment and concatenates. Used by tests to check data transparency.
func unfold(segments []string) string {
	out := segments[0]
	for _, s := range segments[1:] {
		if len(s) > 0 && s[0] == ' ' {
			s = s[1:]
		}
		out += s
	}
	return out
}
