package main

import (
	"log/slog"
	"net/http"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/OliverSchlueter/smtp-transport/internal/outbox"
	"github.com/OliverSchlueter/smtp-transport/internal/outbox/database/fake"
	"github.com/OliverSchlueter/smtp-transport/internal/sendhandler"
	"github.com/OliverSchlueter/smtp-transport/internal/smtpsink"
	"github.com/OliverSchlueter/smtp-transport/internal/transport"
)

const hostname = "localhost"

func main() {
	lokiService := sloki.NewService(sloki.Configuration{
		URL:          "http://localhost:3100/loki/api/v1/push",
		Service:      "smtp-transport",
		ConsoleLevel: slog.LevelDebug,
		LokiLevel:    slog.LevelInfo,
		EnableLoki:   false,
	})
	slog.SetDefault(slog.New(lokiService))

	// receiving sink
	sink := smtpsink.NewServer(smtpsink.Configuration{
		Hostname: hostname,
		Port:     "2525",
		Deliver: func(m smtpsink.Mail) {
			slog.Info("Sink received mail", "from", m.From, "to", m.To, "lines", len(m.Lines))
		},
	})
	go func() {
		if err := sink.Start(); err != nil {
			slog.Error("Sink stopped", sloki.WrapError(err))
		}
	}()
	slog.Info("Started SMTP sink")

	// transport client
	client := transport.NewClient(transport.Configuration{
		Host: hostname,
		Port: "2525",
	})

	if err := client.Connect(); err != nil {
		slog.Error("Failed to connect", sloki.WrapError(err))
		return
	}
	slog.Info("Connected", "extensions", client.Extensions())

	err := client.SendMessage(transport.Message{
		From:    "oliver@" + hostname,
		To:      []string{"peter@" + hostname},
		Subject: "Transport end-to-end",
		Headers: []string{"From: oliver@" + hostname},
		Body:    "Sent over the raw wire.",
	})
	if err != nil {
		slog.Error("Failed to send mail", sloki.WrapError(err))
		return
	}
	slog.Info("Mail sent")

	// submission API
	ob := outbox.NewStore(outbox.Configuration{
		DB: fake.NewDB(),
	})

	handler := sendhandler.New(sendhandler.Configuration{
		Sender: client,
		Outbox: ob,
		Domain: hostname,
	})

	mux := http.NewServeMux()
	handler.Register("/api/v1", mux)

	slog.Info("Started submission API on :8080")
	if err := http.ListenAndServe(":8080", mux); err != nil {
		slog.Error("HTTP server stopped", sloki.WrapError(err))
	}
}
