package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"blecentral/internal/domain"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Driver.Backend != "auto" {
		t.Errorf("Driver.Backend = %q, want %q", cfg.Driver.Backend, "auto")
	}
	if cfg.Driver.QueueSize != 256 {
		t.Errorf("Driver.QueueSize = %d, want 256", cfg.Driver.QueueSize)
	}
	if cfg.Driver.MaxListeners != 10 {
		t.Errorf("Driver.MaxListeners = %d, want 10", cfg.Driver.MaxListeners)
	}
	if cfg.Logger.Level != "info" {
		t.Errorf("Logger.Level = %q, want %q", cfg.Logger.Level, "info")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver.QueueSize != 256 {
		t.Errorf("expected defaults, got QueueSize=%d", cfg.Driver.QueueSize)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blecentral.yaml")
	content := `
driver:
  backend: mock
  queue_size: 64
  mock_state: poweredOff
scan:
  service_uuids: ["180d", "0000180f-0000-1000-8000-00805f9b34fb"]
  allow_duplicates: true
  schedule: "*/5 * * * *"
  window: 30s
store:
  enabled: true
  path: ` + filepath.Join(dir, "p.db") + `
logger:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Driver.Backend != "mock" {
		t.Errorf("Backend = %q, want mock", cfg.Driver.Backend)
	}
	if cfg.Driver.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", cfg.Driver.QueueSize)
	}
	if cfg.Driver.MockState != "poweredOff" {
		t.Errorf("MockState = %q", cfg.Driver.MockState)
	}
	if len(cfg.Scan.ServiceUUIDs) != 2 || !cfg.Scan.AllowDuplicates {
		t.Errorf("Scan = %+v", cfg.Scan)
	}
	if cfg.Scan.Window != 30*time.Second {
		t.Errorf("Window = %v, want 30s", cfg.Scan.Window)
	}
	if !cfg.Store.Enabled || cfg.Store.Path != filepath.Join(dir, "p.db") {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Gateway.Addr != ":8765" {
		t.Errorf("Gateway.Addr = %q", cfg.Gateway.Addr)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("driver: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("driver:\n  queue_size: 0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Fatalf("err = %v, want ErrConfigLoad", err)
	}
}

func TestLoadInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.yaml")
	if err := os.WriteFile(path, []byte("driver:\n  backend: mock\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0666); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected permission error")
	}
}

func TestValidatePermissionsOK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatal(err)
	}
	if err := validatePermissions(path); err != nil {
		t.Errorf("validatePermissions: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLECENTRAL_DRIVER_BACKEND", "mock")
	t.Setenv("BLECENTRAL_DRIVER_QUEUE_SIZE", "32")
	t.Setenv("BLECENTRAL_SCAN_SERVICE_UUIDS", " 180d, ,180f ")
	t.Setenv("BLECENTRAL_SCAN_WINDOW", "5s")
	t.Setenv("BLECENTRAL_STORE_ENABLED", "true")
	t.Setenv("BLECENTRAL_GATEWAY_TOKEN", "s3cret")
	t.Setenv("BLECENTRAL_LOGGER_LEVEL", "warn")
	t.Setenv("BLECENTRAL_TRACER_ENABLED", "true")
	t.Setenv("BLECENTRAL_TRACER_EXPORTER", "stdout")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Driver.Backend != "mock" || cfg.Driver.QueueSize != 32 {
		t.Errorf("Driver = %+v", cfg.Driver)
	}
	if got := cfg.Scan.ServiceUUIDs; len(got) != 2 || got[0] != "180d" || got[1] != "180f" {
		t.Errorf("ServiceUUIDs = %v", got)
	}
	if cfg.Scan.Window != 5*time.Second {
		t.Errorf("Window = %v", cfg.Scan.Window)
	}
	if !cfg.Store.Enabled {
		t.Error("Store.Enabled should be true")
	}
	if len(cfg.Gateway.Tokens) != 1 || cfg.Gateway.Tokens[0].Token != "s3cret" {
		t.Errorf("Tokens = %+v", cfg.Gateway.Tokens)
	}
	if cfg.Logger.Level != "warn" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	if !cfg.Tracer.Enabled || cfg.Tracer.Exporter != "stdout" {
		t.Errorf("Tracer = %+v", cfg.Tracer)
	}
}

func TestEnvOverridesIgnoreMalformedNumbers(t *testing.T) {
	t.Setenv("BLECENTRAL_DRIVER_QUEUE_SIZE", "lots")
	t.Setenv("BLECENTRAL_SCAN_WINDOW", "soon")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)
	if cfg.Driver.QueueSize != 256 {
		t.Errorf("QueueSize = %d, want 256", cfg.Driver.QueueSize)
	}
	if cfg.Scan.Window != 10*time.Second {
		t.Errorf("Window = %v, want 10s", cfg.Scan.Window)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandHome("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("expandHome = %q", got)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := EncryptValue("gateway-token", "passphrase")
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	plain, err := DecryptValue(enc, "passphrase")
	if err != nil {
		t.Fatalf("DecryptValue: %v", err)
	}
	if plain != "gateway-token" {
		t.Errorf("plain = %q", plain)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	enc, err := EncryptValue("gateway-token", "right")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptValue(enc, "wrong"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestDecryptValueMalformed(t *testing.T) {
	cases := map[string]string{
		"no separator": "abcdef",
		"bad salt":     "zz:00",
		"bad data":     "00:zz",
		"too short":    "00112233445566778899aabbccddeeff:00",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecryptValue(in, "pass"); err == nil {
				t.Errorf("DecryptValue(%q) should fail", in)
			}
		})
	}
}

func TestLoadWithConfigKey(t *testing.T) {
	enc, err := EncryptValue("hunter2", "k3y")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "blecentral.yaml")
	content := `
gateway:
  enabled: true
  addr: "127.0.0.1:9999"
  tokens:
    - name: ops
      token: "enc:` + enc + `"
    - name: plain
      token: "visible"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BLECENTRAL_CONFIG_KEY", "k3y")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Tokens[0].Token != "hunter2" {
		t.Errorf("token[0] = %q, want decrypted", cfg.Gateway.Tokens[0].Token)
	}
	if cfg.Gateway.Tokens[1].Token != "visible" {
		t.Errorf("token[1] = %q", cfg.Gateway.Tokens[1].Token)
	}
}

func TestDecryptSecretsInvalidCiphertext(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Tokens = []TokenConfig{{Name: "broken", Token: "enc:nothex"}}
	if err := decryptSecrets(cfg, "pass"); err == nil {
		t.Fatal("expected error")
	}
}
