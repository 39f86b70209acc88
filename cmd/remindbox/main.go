package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/host/v3"

	"remindbox/internal/alarm"
	"remindbox/internal/clock"
	"remindbox/internal/config"
	"remindbox/internal/gesture"
	"remindbox/internal/hw"
	"remindbox/internal/mail"
	"remindbox/internal/mqttsync"
	"remindbox/internal/screen"
	"remindbox/internal/storage"
	"remindbox/internal/store"
	"remindbox/internal/ui"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.LoadOrCreate(config.ResolveConfigPath())
	if err != nil {
		fail("load config", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		fail("open database", err)
	}
	defer db.Close()

	st := store.New(db, nil, log)

	var bridge *mqttsync.Bridge
	if cfg.MQTT.Enabled {
		bridge = mqttsync.New(mqttsync.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, st, log)
		st.SetNotifier(bridge)
	}

	if err := st.Load(); err != nil {
		fail("load reminders", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk, err := clock.NewSystem(cfg.Timezone, cfg.NTP.Servers,
		time.Duration(cfg.NTP.IntervalSeconds)*time.Second, log)
	if err != nil {
		fail("set up clock", err)
	}
	go clk.Run(ctx)

	if _, err := host.Init(); err != nil {
		fail("init peripherals", err)
	}
	display, err := hw.OpenDisplay(cfg.Pins.DisplaySPI, cfg.Pins.DisplayDC,
		cfg.Pins.DisplayRST, cfg.Pins.Backlight)
	if err != nil {
		fail("open display", err)
	}
	defer display.Close()
	btns, err := hw.OpenButtons(cfg.Pins.ButtonOK, cfg.Pins.ButtonBack,
		cfg.Pins.ButtonNext, cfg.Pins.ButtonCancel)
	if err != nil {
		fail("open buttons", err)
	}
	ldr, err := hw.OpenLDR(cfg.Pins.ADCSPI, cfg.Pins.ADCChannel)
	if err != nil {
		fail("open light sensor", err)
	}
	defer ldr.Close()
	ind, err := hw.OpenIndicator(cfg.Pins.LED, cfg.Pins.Buzzer)
	if err != nil {
		fail("open indicator", err)
	}

	rec, err := gesture.New(gesture.Config{
		LightThreshold:    cfg.Gesture.LightThreshold,
		Debounce:          time.Duration(cfg.Gesture.DebounceMs) * time.Millisecond,
		DoubleSwipeWindow: time.Duration(cfg.Gesture.DoubleSwipeMs) * time.Millisecond,
		ScanInterval:      time.Duration(cfg.Gesture.ScanIntervalMs) * time.Millisecond,
		Samples:           cfg.Gesture.Samples,
	}, ldr, ind, log)
	if err != nil {
		fail("set up gesture recognizer", err)
	}

	scr := screen.New(display)
	state := &screen.State{}
	sess := alarm.NewSession()

	var due alarm.DueNotifier
	if cfg.Mail.Enabled {
		due = mail.New(mail.Config{
			APIKey:   cfg.Mail.APIKey,
			Endpoint: cfg.Mail.Endpoint,
			From:     cfg.Mail.From,
			FromName: cfg.Mail.FromName,
			To:       cfg.Mail.To,
			ToName:   cfg.Mail.ToName,
		}, nil, log)
	}

	snooze := time.Duration(cfg.Alarm.SnoozeMinutes) * time.Minute
	sched := alarm.NewScheduler(st, sess, clk, scr, state, due, log)
	res := alarm.NewResolver(sess, st, rec, scr, state, ind, clk, log)
	res.SnoozeDelay = snooze
	res.RingTimeout = time.Duration(cfg.Alarm.TimeoutSeconds) * time.Second
	ctrl := ui.New(btns, st, sess, rec, scr, state, ind, clk, log)
	ctrl.SnoozeDelay = snooze

	if bridge != nil {
		if err := bridge.Start(); err != nil {
			log.Error("mqtt unavailable, continuing without sync", "err", err)
		} else {
			defer bridge.Stop()
			bridge.PublishHistory()
		}
	}

	go rec.Run(ctx, clk)
	go res.Run(ctx)
	go ctrl.Run(ctx)

	log.Info("remindbox up", "reminders", st.Len())
	sched.Run(ctx)
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "failed to %s: %v\n", what, err)
	os.Exit(1)
}
