package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/drumil/phonebook/internal/contact"
)

type Config struct {
	Addr       string `yaml:"addr"`
	Variant    string `yaml:"variant"`
	LogLevel   string `yaml:"log_level"`
	CronSecret string `yaml:"cron_secret"`

	Digest Digest `yaml:"digest"`
	SMTP   SMTP   `yaml:"smtp"`
	Gmail  Gmail  `yaml:"gmail"`

	SenderEmail string `yaml:"sender_email"`
}

// Digest controls the periodic new-contacts email. Disabled when To is empty.
type Digest struct {
	To       []string      `yaml:"to"`
	Interval time.Duration `yaml:"interval"`
	Subject  string        `yaml:"subject"`
}

type SMTP struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
}

type Gmail struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
}

func Default() Config {
	return Config{
		Addr:     "0.0.0.0:5000",
		Variant:  string(contact.VariantValidated),
		LogLevel: "info",
		Digest: Digest{
			Interval: 24 * time.Hour,
			Subject:  "New phonebook contacts",
		},
		SMTP: SMTP{
			Port: 587,
		},
		Gmail: Gmail{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path or a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "config: reading %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrapf(err, "config: parsing %s", path)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	getEnv := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := getEnv("PORT"); ok {
		c.Addr = "0.0.0.0:" + v
	}
	if v, ok := getEnv("PHONEBOOK_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := getEnv("PHONEBOOK_VARIANT"); ok {
		c.Variant = v
	}
	if v, ok := getEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := getEnv("CRON_SECRET"); ok {
		c.CronSecret = v
	}
	if v, ok := getEnv("DIGEST_TO"); ok {
		c.Digest.To = splitList(v)
	}
	if v, ok := getEnv("DIGEST_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "config: invalid DIGEST_INTERVAL %q", v)
		}
		c.Digest.Interval = d
	}
	if v, ok := getEnv("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnv("SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "config: invalid SMTP_PORT %q", v)
		}
		c.SMTP.Port = port
	}
	if v, ok := getEnv("SMTP_USER"); ok {
		c.SMTP.User = v
	}
	if v, ok := getEnv("SMTP_PASS"); ok {
		c.SMTP.Pass = v
	}
	if v, ok := getEnv("SENDER_EMAIL"); ok {
		c.SenderEmail = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DigestEnabled reports whether a digest recipient is configured.
func (c *Config) DigestEnabled() bool {
	return len(c.Digest.To) > 0
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr cannot be empty")
	}
	if _, err := contact.ParseVariant(c.Variant); err != nil {
		return errors.Wrap(err, "config")
	}
	if !c.DigestEnabled() {
		return nil
	}
	if c.Digest.Interval <= 0 {
		return errors.Errorf("config: digest.interval must be positive, got %v", c.Digest.Interval)
	}
	if c.SenderEmail == "" {
		return errors.New("config: sender_email is required when digest.to is set")
	}
	return nil
}
