// Package mqttsync mirrors reminder changes to an MQTT broker and applies
// remote commands back into the store. Outbound events and inbound
// commands share the same topics; only payloads carrying an "action"
// field are treated as commands, which keeps the bridge from replaying
// its own publications.
package mqttsync

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"remindbox/internal/store"
	"remindbox/internal/timeutil"
)

// DefaultTopicPrefix is prepended to every event and command topic.
const DefaultTopicPrefix = "reminders/"

var commandTopics = []string{"add", "update", "delete", "status"}

// Config carries the broker connection settings.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// Bridge is the MQTT side of the store. It implements store.Notifier for
// the outbound direction.
type Bridge struct {
	cli    mqtt.Client
	store  *store.Store
	prefix string
	log    *slog.Logger
}

// New builds a bridge around a fresh paho client. Connect it with Start.
func New(cfg Config, st *store.Store, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	b := &Bridge{
		store:  st,
		prefix: cfg.TopicPrefix,
		log:    log.With("component", "mqtt"),
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			b.log.Info("connected", "broker", cfg.Broker)
			b.subscribe(c)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.log.Warn("connection lost", "err", err)
		})
	b.cli = mqtt.NewClient(opts)
	return b
}

// Start connects to the broker. Reconnects are handled by the client.
func (b *Bridge) Start() error {
	token := b.cli.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		b.log.Warn("connect still pending, continuing in background")
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	b.cli.Disconnect(250)
}

func (b *Bridge) subscribe(c mqtt.Client) {
	for _, t := range commandTopics {
		topic := b.prefix + t
		token := c.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			b.handleMessage(msg.Topic(), msg.Payload())
		})
		go func(topic string) {
			token.Wait()
			if err := token.Error(); err != nil {
				b.log.Error("subscribe failed", "topic", topic, "err", err)
			}
		}(topic)
	}
}

// Publish mirrors a store change event, best effort.
func (b *Bridge) Publish(topic string, payload []byte) {
	token := b.cli.Publish(b.prefix+topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			b.log.Warn("publish failed", "topic", b.prefix+topic, "err", err)
		}
	}()
}

// command is the inbound remote-control payload. Action distinguishes it
// from the change events the bridge publishes itself.
type command struct {
	Action  string `json:"action"`
	ID      int    `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	var cmd command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.log.Warn("bad payload", "topic", topic, "err", err)
		return
	}
	if cmd.Action == "" {
		// One of our own change events echoed back.
		return
	}
	if err := b.Apply(cmd); err != nil {
		b.log.Error("command rejected", "action", cmd.Action, "id", cmd.ID, "err", err)
		return
	}
	if err := b.store.Save(); err != nil {
		b.log.Error("save after command", "err", err)
	}
}

// Apply executes one remote command against the store, without
// re-publishing it.
func (b *Bridge) Apply(cmd command) error {
	switch cmd.Action {
	case "add":
		hour, minute, err := timeutil.ParseClock(cmd.Time)
		if err != nil {
			return err
		}
		status := store.Status(cmd.Status)
		if cmd.Status == "" {
			status = store.StatusPending
		}
		id, err := b.store.MergeAdd(cmd.ID, cmd.Date, hour, minute, cmd.Content, status)
		if err != nil {
			return err
		}
		b.log.Info("remote add", "id", id)
		return nil

	case "update":
		var p store.Patch
		if cmd.Date != "" {
			p.Date = &cmd.Date
		}
		if cmd.Time != "" {
			hour, minute, err := timeutil.ParseClock(cmd.Time)
			if err != nil {
				return err
			}
			p.Hour, p.Minute = &hour, &minute
		}
		if cmd.Content != "" {
			p.Content = &cmd.Content
		}
		if cmd.Status != "" {
			st := store.Status(cmd.Status)
			p.Status = &st
		}
		if err := b.store.MergeUpdate(cmd.ID, p); err != nil {
			return err
		}
		b.log.Info("remote update", "id", cmd.ID)
		return nil

	case "delete":
		if err := b.store.MergeDelete(cmd.ID); err != nil {
			return err
		}
		b.log.Info("remote delete", "id", cmd.ID)
		return nil

	case "status":
		st := store.Status(cmd.Status)
		if !st.Valid() {
			return fmt.Errorf("%w: %q", store.ErrInvalidStatus, cmd.Status)
		}
		if err := b.store.MergeUpdate(cmd.ID, store.Patch{Status: &st}); err != nil {
			return err
		}
		b.log.Info("remote status", "id", cmd.ID, "status", st)
		return nil
	}
	return fmt.Errorf("unknown action %q", cmd.Action)
}

// PublishHistory mirrors the full live set to the history topic, used
// after startup so remote listeners can resynchronize.
func (b *Bridge) PublishHistory() {
	snapshot := b.store.Snapshot()
	type entry struct {
		ID      int    `json:"id"`
		Date    string `json:"date"`
		Time    string `json:"time"`
		Content string `json:"content"`
		Status  string `json:"status"`
	}
	out := make([]entry, 0, len(snapshot))
	for _, r := range snapshot {
		out = append(out, entry{
			ID:      r.ID,
			Date:    r.Date,
			Time:    timeutil.FormatTime(r.Hour, r.Minute),
			Content: r.Content,
			Status:  string(r.Status),
		})
	}
	payload, err := json.Marshal(out)
	if err != nil {
		b.log.Error("encode history", "err", err)
		return
	}
	b.Publish("history", payload)
}
