package transport

import (
	"bufio"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/OliverSchlueter/goutils/sloki"
)

const defaultConnectTimeout = 5 * time.Second

// Client is a raw-wire SMTP transport client. One instance owns one TCP
// session to a relay and drives mail transactions over it. A Client is not
// safe for concurrent use; callers needing parallelism use independent
// instances.
type Client struct {
	cfg     Configuration
	session Session
	conn    net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	dkimKey *rsa.PrivateKey
}

type Configuration struct {
	Host           string
	Port           string        // defaults to "25"
	LocalName      string        // client identity for EHLO/HELO, defaults to "localhost"
	DisableESMTP   bool          // skip EHLO and go straight to HELO
	ConnectTimeout time.Duration // defaults to 5s
	ReadTimeout    time.Duration // per reply read; zero means no deadline
	DKIM           *DKIMConfiguration
}

func NewClient(config Configuration) *Client {
	if config.Port == "" {
		config.Port = "25"
	}
	if config.LocalName == "" {
		config.LocalName = "localhost"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaultConnectTimeout
	}

	return &Client{
		cfg: config,
		session: Session{
			Host:        config.Host,
			Port:        config.Port,
			UseExtended: !config.DisableESMTP,
		},
	}
}

// LoadDKIMKey loads the PKCS#1 private key used to sign outgoing messages.
// Signing also requires Configuration.DKIM to be set.
func (c *Client) LoadDKIMKey(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("invalid PEM data")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return err
	}

	c.dkimKey = key
	return nil
}

// Connected reports whether a handshake has completed on a live session.
func (c *Client) Connected() bool {
	return c.session.Connected
}

// Extensions returns the capability list advertised by the server during the
// extended handshake. It is empty after a basic (HELO) handshake.
func (c *Client) Extensions() []string {
	exts := make([]string, len(c.session.Extensions))
	copy(exts, c.session.Extensions)
	return exts
}

// Connect establishes the session: resolve, dial with a bounded wait, read
// the greeting and perform the EHLO/HELO handshake. Calling Connect on a
// healthy session is a no-op; on a dead one it reconnects.
func (c *Client) Connect() error {
	if c.session.Connected {
		if c.isAlive() {
			return nil
		}
		slog.Debug("Existing connection is dead, reconnecting", "host", c.session.Host)
		c.teardown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupHost(ctx, c.session.Host)
	if err != nil || len(addrs) == 0 {
		return &DNSResolutionError{Host: c.session.Host, Err: err}
	}

	addr := net.JoinHostPort(addrs[0], c.session.Port)

	// DialContext abandons and cleans up the attempt when the deadline
	// passes, so a late background connect cannot leak into a later call.
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &ConnectTimeoutError{Addr: addr, Timeout: c.cfg.ConnectTimeout}
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return &ConnectTimeoutError{Addr: addr, Timeout: c.cfg.ConnectTimeout}
		}
		return fmt.Errorf("smtp: connecting to %s: %w", addr, err)
	}

	c.conn = conn
	c.r = bufio.NewReader(conn)
	c.w = bufio.NewWriter(conn)

	greeting, err := c.readReply()
	if err != nil {
		return err
	}
	if greeting.code != 220 {
		c.teardown()
		return &ProtocolError{Line: greeting.raw}
	}

	if c.session.UseExtended {
		return c.ehlo()
	}
	return c.helo()
}

// ehlo performs the extended handshake and collects the capability block.
// A 500 reply downgrades to the basic handshake.
func (c *Client) ehlo() error {
	if err := c.writeLine("EHLO " + c.cfg.LocalName); err != nil {
		return err
	}

	rep, err := c.readReply()
	if err != nil {
		return err
	}

	switch {
	case rep.code == 250 && !rep.cont:
		c.session.Extensions = nil
		c.session.Connected = true
		return nil

	case rep.code == 250 && rep.cont:
		c.session.Extensions = append(c.session.Extensions, rep.text)
		for {
			rep, err = c.readReply()
			if err != nil {
				return err
			}
			if rep.code != 250 {
				c.teardown()
				return &ProtocolError{Line: rep.raw}
			}
			c.session.Extensions = append(c.session.Extensions, rep.text)
			if !rep.cont {
				c.session.Connected = true
				return nil
			}
		}

	case rep.code == 500:
		return c.helo()

	default:
		c.teardown()
		return &ProtocolError{Line: rep.raw}
	}
}

// helo performs the basic handshake. No capabilities are negotiated.
func (c *Client) helo() error {
	if err := c.writeLine("HELO " + c.cfg.LocalName); err != nil {
		return err
	}

	rep, err := c.readReply()
	if err != nil {
		return err
	}
	if rep.code != 250 {
		c.teardown()
		return &ProtocolError{Line: rep.raw}
	}

	c.session.Extensions = nil
	c.session.Connected = true
	return nil
}

// Disconnect sends QUIT (best effort, a malformed or missing reply is
// tolerated) and tears the session down. Safe to call when not connected.
func (c *Client) Disconnect() error {
	if c.session.Connected {
		if err := c.rawWriteLine("QUIT"); err == nil {
			if _, err := c.readLine(); err != nil {
				slog.Debug("No reply to QUIT", sloki.WrapError(err))
			}
		}
	}
	c.teardown()
	return nil
}

// reset recovers the server to a clean transaction state after a
// mid-transaction failure. RSET is only trustworthy when the inbound buffer
// holds no unread bytes; pending data means the protocol state is unknown
// and the session is torn down instead.
func (c *Client) reset() {
	if !c.session.Connected {
		return
	}
	if c.r.Buffered() > 0 {
		slog.Warn("Unread data pending before RSET, tearing down", "host", c.session.Host)
		c.teardown()
		return
	}
	if err := c.rawWriteLine("RSET"); err != nil {
		c.teardown()
		return
	}
	line, err := c.readLine()
	if err != nil {
		c.teardown()
		return
	}
	rep, ok := parseReply(line)
	if !ok || rep.code != 250 {
		c.teardown()
	}
}

// isAlive probes the transport without blocking. An idle-but-open socket
// times out the peek; anything readable or an EOF means the session cannot
// be trusted.
func (c *Client) isAlive() bool {
	if c.conn == nil {
		return false
	}
	if c.r.Buffered() > 0 {
		return false
	}
	if err := c.conn.SetReadDeadline(time.Now()); err != nil {
		return false
	}
	_, err := c.r.Peek(1)
	c.conn.SetReadDeadline(time.Time{})

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// teardown closes the transport and clears the session state. It is
// idempotent and never partial: after it returns the client is fully
// disconnected.
func (c *Client) teardown() {
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			slog.Debug("Failed to close connection", sloki.WrapError(err))
		}
	}
	c.conn = nil
	c.r = nil
	c.w = nil
	c.session.Connected = false
	c.session.Extensions = nil
}

// writeLine writes one CRLF-terminated command line and flushes. Any I/O
// failure tears the session down.
func (c *Client) writeLine(line string) error {
	if err := c.rawWriteLine(line); err != nil {
		c.teardown()
		return err
	}
	return nil
}

func (c *Client) rawWriteLine(line string) error {
	if c.w == nil {
		return ErrNotConnected
	}
	if _, err := c.w.WriteString(line + "\r\n"); err != nil {
		return fmt.Errorf("smtp: writing line: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("smtp: flushing: %w", err)
	}

	slog.Debug("C: " + line)
	return nil
}

// readReply reads and classifies one reply line. A read failure or peer
// closure tears the session down and surfaces as a ProtocolError; a reply
// never silently hangs past the configured read timeout.
func (c *Client) readReply() (reply, error) {
	line, err := c.readLine()
	if err != nil {
		c.teardown()
		return reply{}, &ProtocolError{Err: err}
	}
	rep, ok := parseReply(line)
	if !ok {
		c.teardown()
		return reply{}, &ProtocolError{Line: line}
	}
	return rep, nil
}

func (c *Client) readLine() (string, error) {
	if c.r == nil {
		return "", ErrNotConnected
	}
	if c.cfg.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return "", err
		}
	}

	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")

	slog.Debug("S: " + line)
	return line, nil
}
