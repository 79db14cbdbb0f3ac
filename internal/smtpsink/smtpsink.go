// Package smtpsink is a minimal receiving SMTP server used as the far end
// for the transport client in end-to-end runs and tests. It accepts one
// mail transaction per MAIL/RCPT/DATA sequence and hands the result to a
// Deliver callback; it implements no auth and no TLS.
package smtpsink

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/OliverSchlueter/goutils/sloki"
)

type Mail struct {
	From  string
	To    []string
	Lines []string
}

type Server struct {
	hostname string
	port     string
	deliver  func(Mail)
}

type Configuration struct {
	Hostname string
	Port     string
	Deliver  func(Mail)
}

func NewServer(config Configuration) *Server {
	if config.Port == "" {
		config.Port = "25"
	}
	if config.Deliver == nil {
		config.Deliver = func(m Mail) {
			slog.Info("Mail received", "from", m.From, "to", m.To)
		}
	}

	return &Server{
		hostname: config.Hostname,
		port:     config.Port,
		deliver:  config.Deliver,
	}
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on the given listener. Tests bind 127.0.0.1:0
// and pass the listener in to get a free port.
func (s *Server) Serve(listener net.Listener) error {
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}

		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	writeLine(w, fmt.Sprintf("220 %s SMTP service ready", s.hostname))

	var mail Mail
	readingData := false

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		if readingData {
			if line == "." {
				s.deliver(mail)
				mail = Mail{}
				readingData = false
				writeLine(w, "250 OK")
				continue
			}

			line = strings.TrimPrefix(line, ".")
			mail.Lines = append(mail.Lines, line)
			continue
		}

		switch {
		case strings.HasPrefix(upper, "EHLO"):
			writeLine(w, fmt.Sprintf("250-%s greets %s", s.hostname, strings.TrimSpace(line[4:])))
			writeLine(w, "250 SIZE 10485760")

		case strings.HasPrefix(upper, "HELO"):
			writeLine(w, fmt.Sprintf("250 %s greets %s", s.hostname, strings.TrimSpace(line[4:])))

		case strings.HasPrefix(upper, "MAIL FROM:"):
			mail = Mail{From: trimAddress(line[len("MAIL FROM:"):])}
			writeLine(w, "250 OK")

		case strings.HasPrefix(upper, "RCPT TO:"):
			if mail.From == "" {
				writeLine(w, "503 Bad sequence: 'MAIL FROM' required first")
				continue
			}
			mail.To = append(mail.To, trimAddress(line[len("RCPT TO:"):]))
			writeLine(w, "250 OK")

		case upper == "DATA":
			if len(mail.To) == 0 {
				writeLine(w, "503 Bad sequence: 'RCPT TO' required first")
				continue
			}
			readingData = true
			writeLine(w, "354 Start mail input; end with <CRLF>.<CRLF>")

		case upper == "RSET":
			mail = Mail{}
			readingData = false
			writeLine(w, "250 OK")

		case upper == "NOOP":
			writeLine(w, "250 OK")

		case upper == "QUIT":
			writeLine(w, fmt.Sprintf("221 %s closing connection", s.hostname))
			return

		default:
			writeLine(w, "500 Unrecognized command")
		}
	}
}

func trimAddress(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "<>"))
}

func writeLine(w *bufio.Writer, line string) {
	if _, err := w.WriteString(line + "\r\n"); err != nil {
		slog.Error("Failed to write to connection", sloki.WrapError(err))
		return
	}
	if err := w.Flush(); err != nil {
		slog.Error("Failed to flush writer", sloki.WrapError(err))
		return
	}
}
