package accesspoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/config"
)

type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) GetSetting(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("setting not found: %s", key)
	}
	return v, nil
}

func (m *memStore) SetSetting(key, value string) error {
	m.values[key] = value
	return nil
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	cfg := &config.AccessPointConfig{
		Enabled:   true,
		Interface: "wlan0",
		SSID:      "showroom",
		Channel:   11,
		ConfigDir: t.TempDir(),
		ApplyCmd:  "",
	}
	svc := NewService(cfg, store)
	if svc == nil {
		t.Fatal("Expected service when enabled")
	}
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("DisabledReturnsNil", func(t *testing.T) {
		if svc := NewService(&config.AccessPointConfig{Enabled: false}, newMemStore()); svc != nil {
			t.Error("Expected nil service when disabled")
		}
	})

	t.Run("NilServiceIsSafe", func(t *testing.T) {
		var svc *Service
		if err := svc.EnsureDefaults(); err != nil {
			t.Errorf("EnsureDefaults on nil service should be a no-op: %v", err)
		}
		if err := svc.Update(map[string]string{KeySSID: "x"}); err == nil {
			t.Error("Update on nil service should fail")
		}
		if err := svc.RenderAndApply(); err == nil {
			t.Error("RenderAndApply on nil service should fail")
		}
	})
}

func TestEnsureDefaults(t *testing.T) {
	t.Run("SeedsMissingKeys", func(t *testing.T) {
		store := newMemStore()
		svc := newTestService(t, store)

		if err := svc.EnsureDefaults(); err != nil {
			t.Fatalf("Failed to seed defaults: %v", err)
		}

		// Config file values win over built-in defaults
		if store.values[KeySSID] != "showroom" {
			t.Errorf("Expected configured SSID, got %s", store.values[KeySSID])
		}
		if store.values[KeyChannel] != "11" {
			t.Errorf("Expected configured channel, got %s", store.values[KeyChannel])
		}
		if store.values[KeySubnet] != "10.10.0.1" {
			t.Errorf("Expected default subnet, got %s", store.values[KeySubnet])
		}
	})

	t.Run("DoesNotOverwriteExisting", func(t *testing.T) {
		store := newMemStore()
		store.values[KeySSID] = "lobby-display"
		svc := newTestService(t, store)

		if err := svc.EnsureDefaults(); err != nil {
			t.Fatalf("Failed to seed defaults: %v", err)
		}
		if store.values[KeySSID] != "lobby-display" {
			t.Errorf("Expected existing SSID preserved, got %s", store.values[KeySSID])
		}
	})
}

func TestUpdate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	t.Run("PersistsKnownKeys", func(t *testing.T) {
		err := svc.Update(map[string]string{
			KeySSID:    " conference ",
			KeyChannel: "3",
		})
		if err != nil {
			t.Fatalf("Failed to update: %v", err)
		}
		if store.values[KeySSID] != "conference" {
			t.Errorf("Expected trimmed SSID, got %q", store.values[KeySSID])
		}
		if store.values[KeyChannel] != "3" {
			t.Errorf("Expected channel 3, got %s", store.values[KeyChannel])
		}
	})

	t.Run("RejectsShortPassphrase", func(t *testing.T) {
		if err := svc.Update(map[string]string{KeyPassphrase: "short"}); err == nil {
			t.Error("Expected short passphrase to be rejected")
		}
	})

	t.Run("RejectsBadChannel", func(t *testing.T) {
		for _, ch := range []string{"0", "14", "abc"} {
			if err := svc.Update(map[string]string{KeyChannel: ch}); err == nil {
				t.Errorf("Expected channel %s to be rejected", ch)
			}
		}
	})

	t.Run("IgnoresUnknownKeys", func(t *testing.T) {
		if err := svc.Update(map[string]string{"ap_bogus": "x"}); err != nil {
			t.Fatalf("Unknown keys should be ignored: %v", err)
		}
		if _, ok := store.values["ap_bogus"]; ok {
			t.Error("Unknown key should not be persisted")
		}
	})
}

func TestRenderAndApply(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	if err := svc.EnsureDefaults(); err != nil {
		t.Fatalf("Failed to seed defaults: %v", err)
	}
	store.values[KeyPassphrase] = "letmein123"

	if err := svc.RenderAndApply(); err != nil {
		t.Fatalf("Failed to render: %v", err)
	}

	hostapd, err := os.ReadFile(filepath.Join(svc.config.ConfigDir, "hostapd", "hostapd.conf"))
	if err != nil {
		t.Fatalf("Failed to read hostapd config: %v", err)
	}
	for _, want := range []string{"interface=wlan0", "ssid=showroom", "channel=11", "wpa_passphrase=letmein123"} {
		if !strings.Contains(string(hostapd), want) {
			t.Errorf("Expected hostapd config to contain %q", want)
		}
	}

	dnsmasq, err := os.ReadFile(filepath.Join(svc.config.ConfigDir, "dnsmasq.d", "slidecast.conf"))
	if err != nil {
		t.Fatalf("Failed to read dnsmasq config: %v", err)
	}
	for _, want := range []string{"dhcp-range=10.10.0.50,10.10.0.150", "address=/gw.wlan/10.10.0.1"} {
		if !strings.Contains(string(dnsmasq), want) {
			t.Errorf("Expected dnsmasq config to contain %q", want)
		}
	}
}
