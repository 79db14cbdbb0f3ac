// Package sendhandler exposes the transport client over a small HTTP
// submission API and records every accepted submission in the outbox.
package sendhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/OliverSchlueter/goutils/idgen"
	"github.com/OliverSchlueter/goutils/problems"
	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/OliverSchlueter/smtp-transport/internal/headers"
	"github.com/OliverSchlueter/smtp-transport/internal/outbox"
	"github.com/OliverSchlueter/smtp-transport/internal/transport"
	"github.com/google/uuid"
)

// Sender is the transport surface the handler drives. *transport.Client
// satisfies it.
type Sender interface {
	Connect() error
	SendMessage(m transport.Message) error
}

type Handler struct {
	sender Sender
	outbox *outbox.Store
	domain string
}

type Configuration struct {
	Sender Sender
	Outbox *outbox.Store
	Domain string // domain part of generated Message-IDs
}

func New(config Configuration) *Handler {
	if config.Domain == "" {
		config.Domain = "localhost"
	}

	return &Handler{
		sender: config.Sender,
		outbox: config.Outbox,
		domain: config.Domain,
	}
}

func (h *Handler) Register(prefix string, mux *http.ServeMux) {
	mux.HandleFunc(prefix+"/outbox", h.handleOutbox)
	mux.HandleFunc(prefix+"/send", h.handleSend)
}

type SendMailReq struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Cc      string   `json:"cc"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		problems.MethodNotAllowed(r.Method, []string{http.MethodPost}).WriteToHTTP(w)
		return
	}

	var req SendMailReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problems.CouldNotDecodeBody().WriteToHTTP(w)
		return
	}

	if !headers.ValidAddress(req.From) {
		problems.ValidationError("from", "Invalid sender address").WriteToHTTP(w)
		return
	}
	if len(req.To) == 0 {
		problems.ValidationError("to", "At least one recipient is required").WriteToHTTP(w)
		return
	}

	recipients := append([]string{}, req.To...)
	recipients = append(recipients, headers.ExtractAddresses(req.Cc)...)

	msgID := idgen.GenerateID(20) + "@" + h.domain
	rawHeaders := []string{
		"From: " + req.From,
		"Message-ID: <" + msgID + ">",
		"MIME-Version: 1.0",
	}
	if req.Cc != "" {
		rawHeaders = append(rawHeaders, "Cc: "+req.Cc)
	}

	msg := transport.Message{
		From:    req.From,
		To:      recipients,
		Subject: req.Subject,
		Headers: rawHeaders,
		Body:    req.Body,
	}

	if err := h.sender.Connect(); err != nil {
		slog.Error("Failed to connect to relay", sloki.WrapError(err))
		problems.InternalServerError("Failed to connect to relay: " + err.Error()).WriteToHTTP(w)
		return
	}

	if err := h.sender.SendMessage(msg); err != nil {
		slog.Error("Failed to send mail", sloki.WrapError(err))
		problems.InternalServerError("Failed to send mail: " + err.Error()).WriteToHTTP(w)
		return
	}

	record := outbox.Record{
		ID:          uuid.New().String(),
		From:        req.From,
		To:          recipients,
		Subject:     req.Subject,
		Size:        len(req.Body),
		SubmittedAt: time.Now(),
	}
	if err := h.outbox.Add(record); err != nil {
		slog.Error("Failed to record submission", sloki.WrapError(err))
		problems.InternalServerError("Failed to record submission").WriteToHTTP(w)
		return
	}

	slog.Info("Mail submitted", "to", recipients, "message_id", msgID)
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleOutbox(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		problems.MethodNotAllowed(r.Method, []string{http.MethodGet}).WriteToHTTP(w)
		return
	}

	records, err := h.outbox.GetAll()
	if err != nil {
		problems.InternalServerError(err.Error()).WriteToHTTP(w)
		return
	}

	data, err := json.Marshal(records)
	if err != nil {
		problems.InternalServerError("Error marshalling outbox").WriteToHTTP(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
