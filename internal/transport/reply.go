package transport

import "strconv"

// reply is a single server response line, classified by its leading 3-digit
// code and, for multi-line blocks, the 4th character ('-' = continuation).
type reply struct {
	code int
	cont bool
	text string
	raw  string
}

func parseReply(raw string) (reply, bool) {
	if len(raw) < 3 {
		return reply{raw: raw}, false
	}

	code, err := strconv.Atoi(raw[:3])
	if err != nil {
		return reply{raw: raw}, false
	}

	r := reply{code: code, raw: raw}
	if len(raw) > 3 {
		r.cont = raw[3] == '-'
		r.text = raw[4:]
	}
	return r, true
}
