package transport

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSendMessageNotConnected(t *testing.T) {
	c := NewClient(Configuration{Host: "localhost"})

	err := c.SendMessage(Message{
		From: "a@x.com",
		To:   []string{"b@y.com"},
		Body: "Hello",
	})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Expected ErrNotConnected, got %v", err)
	}
}

func TestSendMessageWireSequence(t *testing.T) {
	var mu sync.Mutex
	var got []string

	host, port := startServer(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		w := bufio.NewWriter(conn)

		record := func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		}

		serverWrite(w, "220 ready")

		inData := false
		for {
			line, err := serverRead(r)
			if err != nil {
				return
			}
			record(line)

			if inData {
				if line == "." {
					inData = false
					serverWrite(w, "250 OK")
				}
				continue
			}

			switch {
			case strings.HasPrefix(line, "EHLO"):
				serverWrite(w, "250 OK")
			case strings.HasPrefix(line, "MAIL FROM:"):
				serverWrite(w, "250 OK")
			case strings.HasPrefix(line, "RCPT TO:"):
				serverWrite(w, "250 OK")
			case line == "DATA":
				inData = true
				serverWrite(w, "354 go ahead")
			case line == "QUIT":
				serverWrite(w, "221 bye")
				return
			default:
				serverWrite(w, "500 Unrecognized command")
			}
		}
	})

	c := NewClient(Configuration{Host: host, Port: port})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	err := c.SendMessage(Message{
		From:    "a@x.com",
		To:      []string{"b@y.com"},
		Subject: "Hi",
		Body:    "Hello",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	want := []struct {
		prefix string
	}{
		{"EHLO "},
		{"MAIL FROM:a@x.com"},
		{"RCPT TO:b@y.com"},
		{"DATA"},
		{"Date: "},
		{"Subject: Hi"},
		{"To: b@y.com"},
		{""},
		{"Hello"},
		{"."},
		{"QUIT"},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		if !strings.HasPrefix(got[i], w.prefix) {
			t.Errorf("Line %d: expected prefix %q, got %q", i, w.prefix, got[i])
		}
	}
	if got[7] != "" {
		t.Errorf("Expected blank header/body separator, got %q", got[7])
	}
}

func TestSendMessageRejectedRcptResets(t *testing.T) {
	var mu sync.Mutex
	var got []string

	host, port := startServer(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		w := bufio.NewWriter(conn)

		serverWrite(w, "220 ready")
		for {
			line, err := serverRead(r)
			if err != nil {
				return
			}
			mu.Lock()
			got = append(got, line)
			mu.Unlock()

			switch {
			case strings.HasPrefix(line, "EHLO"):
				serverWrite(w, "250 OK")
			case strings.HasPrefix(line, "MAIL FROM:"):
				serverWrite(w, "250 OK")
			case strings.HasPrefix(line, "RCPT TO:"):
				serverWrite(w, "252 Cannot VRFY user")
			case line == "RSET":
				serverWrite(w, "250 OK")
			case line == "QUIT":
				serverWrite(w, "221 bye")
				return
			default:
				serverWrite(w, "500 Unrecognized command")
			}
		}
	})

	c := NewClient(Configuration{Host: host, Port: port})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	err := c.SendMessage(Message{
		From: "a@x.com",
		To:   []string{"b@y.com"},
		Body: "Hello",
	})

	var uerr *UnexpectedReplyError
	if !errors.As(err, &uerr) {
		t.Fatalf("Expected UnexpectedReplyError, got %v", err)
	}
	if uerr.Line != "252 Cannot VRFY user" {
		t.Errorf("Expected raw line in error, got %q", uerr.Line)
	}
	if len(uerr.Expected) != 2 || uerr.Expected[0] != 250 || uerr.Expected[1] != 251 {
		t.Errorf("Expected accepted codes [250 251], got %v", uerr.Expected)
	}

	// The failed transaction must have been reset; the session stays usable.
	if !c.Connected() {
		t.Error("Expected client to stay connected after reset")
	}

	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, line := range got {
		if line == "RSET" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected RSET on the wire, got %v", got)
	}
}

func TestSendMessageInvalidRecipient(t *testing.T) {
	var mu sync.Mutex
	var got []string

	host, port := startServer(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		w := bufio.NewWriter(conn)

		serverWrite(w, "220 ready")
		for {
			line, err := serverRead(r)
			if err != nil {
				return
			}
			mu.Lock()
			got = append(got, line)
			mu.Unlock()

			switch {
			case strings.HasPrefix(line, "EHLO"), strings.HasPrefix(line, "MAIL FROM:"):
				serverWrite(w, "250 OK")
			case line == "QUIT":
				serverWrite(w, "221 bye")
				return
			default:
				serverWrite(w, "500 Unrecognized command")
			}
		}
	})

	c := NewClient(Configuration{Host: host, Port: port})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	err := c.SendMessage(Message{
		From: "a@x.com",
		To:   []string{"not an address", "b@y.com"},
		Body: "Hello",
	})

	var aerr *InvalidAddressError
	if !errors.As(err, &aerr) {
		t.Fatalf("Expected InvalidAddressError, got %v", err)
	}
	if aerr.Address != "not an address" {
		t.Errorf("Expected offending address in error, got %q", aerr.Address)
	}

	// Nothing may have been sent for any recipient.
	mu.Lock()
	defer mu.Unlock()
	for _, line := range got {
		if strings.HasPrefix(line, "RCPT TO:") {
			t.Errorf("Expected no RCPT TO on the wire, got %q", line)
		}
	}
}

func TestBuildDataLines(t *testing.T) {
	now := time.Date(2026, time.March, 7, 12, 30, 0, 0, time.UTC)

	lines := buildDataLines(Message{
		From:    "a@x.com",
		To:      []string{"b@y.com", "c@z.com"},
		Subject: "Hi",
		Headers: []string{
			"From: a@x.com\nX-Priority: 5",
			"X-Priority: 1",
		},
		Body: "line one\nline two",
	}, now)

	want := []string{
		"Date: " + now.Format(time.RFC1123Z),
		"Subject: Hi",
		"To: b@y.com, c@z.com",
		"From: a@x.com",
		"X-Priority: 1",
		"",
		"line one",
		"line two",
	}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestBuildDataLinesEmptyBody(t *testing.T) {
	lines := buildDataLines(Message{
		From: "a@x.com",
		To:   []string{"b@y.com"},
	}, time.Now())

	if lines[len(lines)-1] != "" {
		t.Errorf("Expected trailing blank separator, got %q", lines[len(lines)-1])
	}
}

func TestBuildDataLinesCRLFBody(t *testing.T) {
	lines := buildDataLines(Message{
		From: "a@x.com",
		To:   []string{"b@y.com"},
		Body: "one\r\ntwo",
	}, time.Now())

	tail := lines[len(lines)-2:]
	if tail[0] != "one" || tail[1] != "two" {
		t.Errorf("Expected CRLF body split into [one two], got %v", tail)
	}
}
