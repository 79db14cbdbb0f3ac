// An interop check: sends a message to the local sink through go-mail
// instead of this repo's own transport client.
package main

import (
	"flag"
	"log"

	"github.com/wneessen/go-mail"
)

func main() {
	host := flag.String("host", "localhost", "sink host")
	port := flag.Int("port", 2525, "sink port")
	flag.Parse()

	m := mail.NewMsg()
	if err := m.From("oliver@localhost"); err != nil {
		log.Fatalf("failed to set From address: %s", err)
	}
	if err := m.To("peter@localhost"); err != nil {
		log.Fatalf("failed to set To address: %s", err)
	}
	m.Subject("Interop check")
	m.SetBodyString(mail.TypeTextPlain, "Sent through go-mail against the sink.")

	c, err := mail.NewClient(
		*host,
		mail.WithPort(*port),
		mail.WithTLSPolicy(mail.NoTLS),
		mail.WithHELO("localhost"),
	)
	if err != nil {
		log.Fatalf("failed to create mail client: %s", err)
	}

	if err := c.DialAndSend(m); err != nil {
		log.Fatalf("failed to send mail: %s", err)
	}

	log.Println("mail delivered to sink")
}
