// Package mail sends a transactional email whenever a reminder fires,
// through a MailerSend-compatible JSON API.
package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"remindbox/internal/store"
	"remindbox/internal/timeutil"
)

// DefaultEndpoint is the MailerSend transactional email API.
const DefaultEndpoint = "https://api.mailersend.com/v1/email"

// Config carries the sender identity and credentials.
type Config struct {
	APIKey   string
	Endpoint string
	From     string
	FromName string
	To       string
	ToName   string
}

// Mailer posts one email per due reminder. Sends are fire and forget and
// at most one is in flight; a reminder firing while a send is pending is
// dropped rather than queued.
type Mailer struct {
	cfg      Config
	client   *http.Client
	inflight atomic.Bool
	log      *slog.Logger
}

// New builds a mailer. client may be nil for a default with a send
// timeout.
func New(cfg Config, client *http.Client, log *slog.Logger) *Mailer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{
		cfg:    cfg,
		client: client,
		log:    log.With("component", "mail"),
	}
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type message struct {
	From    address   `json:"from"`
	To      []address `json:"to"`
	Subject string    `json:"subject"`
	Text    string    `json:"text"`
}

// ReminderDue sends the notification for a fired reminder.
func (m *Mailer) ReminderDue(r store.Reminder) {
	if !m.inflight.CompareAndSwap(false, true) {
		m.log.Warn("send already in flight, dropping", "id", r.ID)
		return
	}
	go func() {
		defer m.inflight.Store(false)
		if err := m.send(r); err != nil {
			m.log.Error("send failed", "id", r.ID, "err", err)
			return
		}
		m.log.Info("notification sent", "id", r.ID, "to", m.cfg.To)
	}()
}

func (m *Mailer) send(r store.Reminder) error {
	when := timeutil.FormatTime(r.Hour, r.Minute)
	body, err := json.Marshal(message{
		From:    address{Email: m.cfg.From, Name: m.cfg.FromName},
		To:      []address{{Email: m.cfg.To, Name: m.cfg.ToName}},
		Subject: "NHAC NHO: " + r.Content,
		Text:    fmt.Sprintf("Den gio roi: %s luc %s ngay %s", r.Content, when, r.Date),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail api status %s", resp.Status)
	}
	return nil
}
