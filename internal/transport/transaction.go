package transport

import (
	"strings"
	"time"

	"github.com/OliverSchlueter/smtp-transport/internal/headers"
)

// Message is the envelope and content of one mail transaction. It is
// consumed by SendMessage and not retained.
type Message struct {
	From    string
	To      []string
	Subject string
	Headers []string // raw "Name: Value" blocks, possibly multi-line
	Body    string
}

// SendMessage drives one complete mail transaction over the connected
// session: MAIL FROM, RCPT TO per recipient, DATA, the encoded data lines
// and the dot terminator. Any unexpected reply aborts the transaction,
// resets the server and returns a typed error; the caller owns retries.
func (c *Client) SendMessage(m Message) error {
	if !c.session.Connected {
		return ErrNotConnected
	}

	if err := c.cmd("MAIL FROM:"+m.From, 250); err != nil {
		return err
	}

	for _, rcpt := range m.To {
		if !headers.ValidAddress(rcpt) {
			return &InvalidAddressError{Address: rcpt}
		}
		if err := c.cmd("RCPT TO:"+rcpt, 250, 251); err != nil {
			return err
		}
	}

	// Assemble (and, when configured, sign) the data lines before DATA so a
	// failure here can still be recovered with a plain RSET.
	lines := buildDataLines(m, time.Now())
	if c.cfg.DKIM != nil && c.dkimKey != nil {
		signed, err := c.signDataLines(lines)
		if err != nil {
			c.reset()
			return err
		}
		lines = signed
	}

	if err := c.cmd("DATA", 354); err != nil {
		return err
	}

	for _, line := range lines {
		for _, segment := range encodeDataLine(line) {
			if err := c.writeLine(segment); err != nil {
				return err
			}
		}
	}
	if err := c.writeLine("."); err != nil {
		return err
	}

	rep, err := c.readReply()
	if err != nil {
		return err
	}
	if rep.code != 250 {
		c.reset()
		return &UnexpectedReplyError{Expected: []int{250}, Line: rep.raw}
	}

	return nil
}

// cmd sends one command line and checks the reply against the accepted
// codes. Anything else resets the transaction and fails.
func (c *Client) cmd(line string, accept ...int) error {
	if err := c.writeLine(line); err != nil {
		return err
	}
	rep, err := c.readReply()
	if err != nil {
		return err
	}
	for _, code := range accept {
		if rep.code == code {
			return nil
		}
	}
	c.reset()
	return &UnexpectedReplyError{Expected: accept, Line: rep.raw}
}

// buildDataLines assembles the logical data lines of the message: generated
// headers first, then the caller-supplied header blocks in parsed order, a
// blank separator and the body split on line boundaries.
func buildDataLines(m Message, now time.Time) []string {
	lines := []string{
		"Date: " + now.Format(time.RFC1123Z),
		"Subject: " + m.Subject,
		"To: " + strings.Join(m.To, ", "),
	}

	for _, h := range headers.Parse(m.Headers) {
		lines = append(lines, h.Name+": "+h.Value)
	}

	lines = append(lines, "")

	if m.Body != "" {
		body := strings.ReplaceAll(m.Body, "\r\n", "\n")
		lines = append(lines, strings.Split(body, "\n")...)
	}

	return lines
}
