package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MEMORIA_API_URL", "MEMORIA_TIMEOUT", "MEMORIA_NAVIGATE_DELAY_MS", "PORT", "LOG_LEVEL", "LOG_DEV"} {
		t.Setenv(key, "")
	}
	t.Setenv("MEMORIA_CREDENTIALS", "/tmp/memoria-test/credentials.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Client.BaseURL != defaultAPIURL {
		t.Fatalf("unexpected base url: %s", cfg.Client.BaseURL)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Client.Timeout)
	}
	if cfg.Client.NavigateDelay != 1500*time.Millisecond {
		t.Fatalf("unexpected navigate delay: %v", cfg.Client.NavigateDelay)
	}
	if cfg.Client.CredentialsFile != "/tmp/memoria-test/credentials.yaml" {
		t.Fatalf("unexpected credentials file: %s", cfg.Client.CredentialsFile)
	}
	if cfg.Server.Addr != ":8000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("MEMORIA_API_URL", "https://memoria.example.com/api/")
	t.Setenv("MEMORIA_TIMEOUT", "5")
	t.Setenv("MEMORIA_NAVIGATE_DELAY_MS", "0")

	cfg, err := loadClientConfig()
	if err != nil {
		t.Fatalf("loadClientConfig err: %v", err)
	}
	if cfg.BaseURL != "https://memoria.example.com/api" {
		t.Fatalf("trailing slash not trimmed: %s", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Timeout)
	}
	if cfg.NavigateDelay != 0 {
		t.Fatalf("unexpected delay: %v", cfg.NavigateDelay)
	}
}

func TestLoadClientRejectsBadValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{key: "MEMORIA_API_URL", value: "ftp://nope"},
		{key: "MEMORIA_TIMEOUT", value: "abc"},
		{key: "MEMORIA_TIMEOUT", value: "0"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv("MEMORIA_API_URL", "")
			t.Setenv("MEMORIA_TIMEOUT", "")
			t.Setenv(tc.key, tc.value)
			if _, err := loadClientConfig(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.value)
			}
		})
	}
}

func TestLoadServerConfig(t *testing.T) {
	cases := []struct {
		port    string
		want    string
		wantErr bool
	}{
		{port: "9000", want: ":9000"},
		{port: "127.0.0.1:9000", want: "127.0.0.1:9000"},
		{port: "90 00", wantErr: true},
	}

	for _, tc := range cases {
		t.Setenv("PORT", tc.port)
		got, err := loadServerConfig()
		if tc.wantErr {
			if err == nil {
				t.Fatalf("PORT=%q: expected error", tc.port)
			}
			continue
		}
		if err != nil {
			t.Fatalf("PORT=%q: unexpected error %v", tc.port, err)
		}
		if got.Addr != tc.want {
			t.Fatalf("PORT=%q: got %s want %s", tc.port, got.Addr, tc.want)
		}
	}
}

func TestLoadServerRequireImage(t *testing.T) {
	t.Setenv("FAKEAPI_REQUIRE_IMAGE", "true")
	got, err := loadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.RequireImage {
		t.Fatal("expected RequireImage")
	}

	t.Setenv("FAKEAPI_REQUIRE_IMAGE", "maybe")
	if _, err := loadServerConfig(); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	if (AIConfig{}).Enabled() {
		t.Fatal("empty config should be disabled")
	}
	if !(AIConfig{Model: "m", APIKey: "k"}).Enabled() {
		t.Fatal("api key + model should be enabled")
	}
	if !(AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Fatal("ak/sk + model should be enabled")
	}
	if (AIConfig{Model: "m", AccessKey: "a"}).Enabled() {
		t.Fatal("access key alone should be disabled")
	}
}

func TestLoadLogConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("LOG_OUTPUT", "stderr, /tmp/memoria.log")

	cfg, err := loadLogConfig()
	if err != nil {
		t.Fatalf("loadLogConfig err: %v", err)
	}
	if cfg.Level != "debug" || !cfg.Development {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
	if len(cfg.OutputPaths) != 2 || cfg.OutputPaths[1] != "/tmp/memoria.log" {
		t.Fatalf("unexpected outputs: %v", cfg.OutputPaths)
	}

	t.Setenv("LOG_DEV", "maybe")
	if _, err := loadLogConfig(); err == nil {
		t.Fatal("expected error for invalid LOG_DEV")
	}
}
