package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: courtbook
  environment: test
  port: 9090
database:
  driver: sqlite
  filename: test.db
booking:
  sweep_cron: "0 * * * *"
  default_phone_region: US
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Booking.SweepCron != "0 * * * *" {
		t.Errorf("sweep cron = %q", cfg.Booking.SweepCron)
	}
	if cfg.Booking.DefaultPhoneRegion != "US" {
		t.Errorf("phone region = %q", cfg.Booking.DefaultPhoneRegion)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: courtbook
  environment: test
  port: 8080
database:
  driver: sqlite
  filename: test.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Booking.SweepCron != "*/15 * * * *" {
		t.Errorf("sweep cron default = %q", cfg.Booking.SweepCron)
	}
	if cfg.Booking.DefaultPhoneRegion != "PE" {
		t.Errorf("phone region default = %q", cfg.Booking.DefaultPhoneRegion)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing name", "app:\n  port: 8080\ndatabase:\n  driver: sqlite\n  filename: t.db\n"},
		{"missing port", "app:\n  name: x\ndatabase:\n  driver: sqlite\n  filename: t.db\n"},
		{"bad driver", "app:\n  name: x\n  port: 8080\ndatabase:\n  driver: postgres\n  filename: t.db\n"},
		{"missing filename", "app:\n  name: x\n  port: 8080\ndatabase:\n  driver: sqlite\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
