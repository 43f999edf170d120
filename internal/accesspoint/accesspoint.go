package accesspoint

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"slidecast/internal/config"

	"github.com/sirupsen/logrus"
)

// Settings keys read from and written to the settings store. Values in the
// store take precedence over the static config file so the web UI can edit
// them.
const (
	KeySSID       = "ap_ssid"
	KeyPassphrase = "ap_password"
	KeyCountry    = "ap_country"
	KeyChannel    = "ap_channel"
	KeySubnet     = "ap_subnet"
	KeyRangeStart = "ap_range_start"
	KeyRangeEnd   = "ap_range_end"
)

var defaults = map[string]string{
	KeySSID:       "slidecast",
	KeyPassphrase: "slidecast1234", // min. 8 chars for WPA2
	KeyCountry:    "DE",
	KeyChannel:    "6",
	KeySubnet:     "10.10.0.1",
	KeyRangeStart: "10.10.0.50",
	KeyRangeEnd:   "10.10.0.150",
}

const hostapdTemplate = `interface={{.Interface}}
driver=nl80211
ssid={{.SSID}}
country_code={{.Country}}
hw_mode=g
channel={{.Channel}}
wmm_enabled=0
auth_algs=1
wpa=2
wpa_passphrase={{.Passphrase}}
wpa_key_mgmt=WPA-PSK
rsn_pairwise=CCMP
`

const dnsmasqTemplate = `interface={{.Interface}}
dhcp-range={{.RangeStart}},{{.RangeEnd}},255.255.255.0,24h
domain=wlan
address=/gw.wlan/{{.Subnet}}
`

// SettingsStore is the settings collaborator the service reads overrides
// from and persists edits to.
type SettingsStore interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Service renders hostapd/dnsmasq configuration for the standalone Wi-Fi
// access point and applies it via the configured system command. Requires
// root privileges on the host to take effect.
type Service struct {
	config   *config.AccessPointConfig
	settings SettingsStore
	logger   *logrus.Logger
}

// templateContext carries the resolved values into the config templates.
type templateContext struct {
	Interface  string
	SSID       string
	Passphrase string
	Country    string
	Channel    string
	Subnet     string
	RangeStart string
	RangeEnd   string
}

// NewService creates a new access point service. Returns nil when the
// feature is disabled in config.
func NewService(cfg *config.AccessPointConfig, settings SettingsStore) *Service {
	if !cfg.Enabled {
		return nil
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Service{
		config:   cfg,
		settings: settings,
		logger:   logger,
	}
}

// EnsureDefaults seeds missing AP settings, preferring the static config
// file for SSID/passphrase/channel.
func (s *Service) EnsureDefaults() error {
	if s == nil {
		return nil
	}

	seed := map[string]string{}
	for key, value := range defaults {
		seed[key] = value
	}
	if s.config.SSID != "" {
		seed[KeySSID] = s.config.SSID
	}
	if s.config.Passphrase != "" {
		seed[KeyPassphrase] = s.config.Passphrase
	}
	if s.config.Channel > 0 {
		seed[KeyChannel] = fmt.Sprintf("%d", s.config.Channel)
	}

	for key, value := range seed {
		if _, err := s.settings.GetSetting(key); err == nil {
			continue
		}
		if err := s.settings.SetSetting(key, value); err != nil {
			return fmt.Errorf("failed to seed AP setting %s: %w", key, err)
		}
	}
	return nil
}

// Current returns the resolved AP settings for the admin UI.
func (s *Service) Current() map[string]string {
	values := make(map[string]string, len(defaults))
	for key, fallback := range defaults {
		values[key] = s.value(key, fallback)
	}
	return values
}

// Update validates and persists AP settings coming from the admin UI.
func (s *Service) Update(values map[string]string) error {
	if s == nil {
		return fmt.Errorf("access point support is disabled")
	}

	if pass, ok := values[KeyPassphrase]; ok && len(pass) < 8 {
		return fmt.Errorf("passphrase must be at least 8 characters")
	}
	if ch, ok := values[KeyChannel]; ok {
		var n int
		if _, err := fmt.Sscanf(ch, "%d", &n); err != nil || n < 1 || n > 13 {
			return fmt.Errorf("channel must be between 1 and 13")
		}
	}

	for key, value := range values {
		if _, known := defaults[key]; !known {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		if err := s.settings.SetSetting(key, strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("failed to persist AP setting %s: %w", key, err)
		}
	}
	return nil
}

// RenderAndApply writes hostapd and dnsmasq configuration files and runs
// the configured apply command to restart the services.
func (s *Service) RenderAndApply() error {
	if s == nil {
		return fmt.Errorf("access point support is disabled")
	}

	ctx := templateContext{
		Interface:  s.config.Interface,
		SSID:       s.value(KeySSID, defaults[KeySSID]),
		Passphrase: s.value(KeyPassphrase, defaults[KeyPassphrase]),
		Country:    s.value(KeyCountry, defaults[KeyCountry]),
		Channel:    s.value(KeyChannel, defaults[KeyChannel]),
		Subnet:     s.value(KeySubnet, defaults[KeySubnet]),
		RangeStart: s.value(KeyRangeStart, defaults[KeyRangeStart]),
		RangeEnd:   s.value(KeyRangeEnd, defaults[KeyRangeEnd]),
	}

	hostapdPath := filepath.Join(s.config.ConfigDir, "hostapd", "hostapd.conf")
	dnsmasqPath := filepath.Join(s.config.ConfigDir, "dnsmasq.d", "slidecast.conf")

	if err := s.renderTo(hostapdPath, hostapdTemplate, ctx); err != nil {
		return err
	}
	if err := s.renderTo(dnsmasqPath, dnsmasqTemplate, ctx); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"hostapd": hostapdPath,
		"dnsmasq": dnsmasqPath,
		"ssid":    ctx.SSID,
	}).Info("Rendered access point configuration")

	return s.apply()
}

// renderTo renders a template atomically into place: write to a temp file
// in the same directory, then rename over the target.
func (s *Service) renderTo(path, tmpl string, ctx templateContext) error {
	t, err := template.New(filepath.Base(path)).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template for %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".slidecast-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := t.Execute(tmp, ctx); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// apply runs the configured restart command.
func (s *Service) apply() error {
	if s.config.ApplyCmd == "" {
		return nil
	}

	parts := strings.Fields(s.config.ApplyCmd)
	cmd := exec.Command(parts[0], parts[1:]...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("apply command failed: %w (%s)", err, strings.TrimSpace(string(output)))
	}

	s.logger.WithField("cmd", s.config.ApplyCmd).Info("Applied access point configuration")
	return nil
}

func (s *Service) value(key, fallback string) string {
	if v, err := s.settings.GetSetting(key); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
