package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "reminders.db"
)

type NTP struct {
	Servers         []string `toml:"servers"`
	IntervalSeconds int      `toml:"interval_seconds"`
}

type MQTT struct {
	Enabled     bool   `toml:"enabled"`
	Broker      string `toml:"broker"`
	ClientID    string `toml:"client_id"`
	TopicPrefix string `toml:"topic_prefix"`
}

type Mail struct {
	Enabled  bool   `toml:"enabled"`
	APIKey   string `toml:"api_key"`
	Endpoint string `toml:"endpoint"`
	From     string `toml:"from"`
	FromName string `toml:"from_name"`
	To       string `toml:"to"`
	ToName   string `toml:"to_name"`
}

type Alarm struct {
	SnoozeMinutes  int `toml:"snooze_minutes"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type Gesture struct {
	LightThreshold int `toml:"light_threshold"`
	DebounceMs     int `toml:"debounce_ms"`
	DoubleSwipeMs  int `toml:"double_swipe_ms"`
	ScanIntervalMs int `toml:"scan_interval_ms"`
	Samples        int `toml:"samples"`
}

type Pins struct {
	DisplaySPI   string `toml:"display_spi"`
	DisplayDC    string `toml:"display_dc"`
	DisplayRST   string `toml:"display_rst"`
	Backlight    string `toml:"backlight"`
	ButtonOK     string `toml:"button_ok"`
	ButtonBack   string `toml:"button_back"`
	ButtonNext   string `toml:"button_next"`
	ButtonCancel string `toml:"button_cancel"`
	LED          string `toml:"led"`
	Buzzer       string `toml:"buzzer"`
	ADCSPI       string `toml:"adc_spi"`
	ADCChannel   int    `toml:"adc_channel"`
}

type Config struct {
	DBPath   string  `toml:"db_path"`
	Timezone string  `toml:"timezone"`
	NTP      NTP     `toml:"ntp"`
	MQTT     MQTT    `toml:"mqtt"`
	Mail     Mail    `toml:"mail"`
	Alarm    Alarm   `toml:"alarm"`
	Gesture  Gesture `toml:"gesture"`
	Pins     Pins    `toml:"pins"`
}

// ResolveConfigPath returns the config file location, preferring the
// user config directory and falling back to the working directory.
func ResolveConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "remindbox", DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.Alarm.SnoozeMinutes <= 0 {
		cfg.Alarm.SnoozeMinutes = 5
	}
	if cfg.Alarm.TimeoutSeconds <= 0 {
		cfg.Alarm.TimeoutSeconds = 180
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() Config {
	return Config{
		DBPath:   DefaultDBName,
		Timezone: "Asia/Ho_Chi_Minh",
		NTP: NTP{
			Servers:         []string{"time.nist.gov", "ntp.ubuntu.com", "pool.ntp.org"},
			IntervalSeconds: 15,
		},
		MQTT: MQTT{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			ClientID:    "remindbox",
			TopicPrefix: "reminders/",
		},
		Mail: Mail{
			Enabled:  false,
			Endpoint: "https://api.mailersend.com/v1/email",
		},
		Alarm: Alarm{
			SnoozeMinutes:  5,
			TimeoutSeconds: 180,
		},
		Gesture: Gesture{
			LightThreshold: 2000,
			DebounceMs:     50,
			DoubleSwipeMs:  5000,
			ScanIntervalMs: 20,
			Samples:        8,
		},
		Pins: Pins{
			DisplaySPI:   "SPI0.0",
			DisplayDC:    "GPIO25",
			DisplayRST:   "GPIO24",
			Backlight:    "GPIO23",
			ButtonOK:     "GPIO5",
			ButtonBack:   "GPIO6",
			ButtonNext:   "GPIO13",
			ButtonCancel: "GPIO19",
			LED:          "GPIO16",
			Buzzer:       "GPIO26",
			ADCSPI:       "SPI0.1",
			ADCChannel:   0,
		},
	}
}
