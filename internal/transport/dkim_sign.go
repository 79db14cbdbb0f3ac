package transport

import (
	"bytes"
	"strings"

	"github.com/emersion/go-msgauth/dkim"
)

// DKIMConfiguration enables signing of outgoing messages. Domain must match
// the sender domain; Selector names the DNS TXT record holding the public
// key. The private key is supplied via Client.LoadDKIMKey.
type DKIMConfiguration struct {
	Domain   string
	Selector string
}

// signDataLines signs the assembled data lines and returns the signed
// message as lines again, DKIM-Signature header first.
func (c *Client) signDataLines(lines []string) ([]string, error) {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line + "\r\n")
	}

	opts := &dkim.SignOptions{
		Domain:   c.cfg.DKIM.Domain,
		Selector: c.cfg.DKIM.Selector,
		Signer:   c.dkimKey,
		HeaderKeys: []string{
			"from",
			"to",
			"subject",
			"date",
		},
	}

	var signed bytes.Buffer
	if err := dkim.Sign(&signed, bytes.NewReader(buf.Bytes()), opts); err != nil {
		return nil, err
	}

	return strings.Split(strings.TrimRight(signed.String(), "\r\n"), "\r\n"), nil
}
