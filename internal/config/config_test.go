package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Storage.SessionBackend != BackendMemory {
		t.Errorf("SessionBackend = %q, want memory", cfg.Storage.SessionBackend)
	}
	if cfg.Blob.UploadTTL != 10*time.Minute || cfg.Blob.DownloadTTL != time.Hour {
		t.Errorf("unexpected blob ttls: %v / %v", cfg.Blob.UploadTTL, cfg.Blob.DownloadTTL)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Errorf("TokenTTL = %v, want 168h", cfg.Auth.TokenTTL)
	}
	if cfg.Speech.Provider != SpeechProviderVolcengine {
		t.Errorf("Speech.Provider = %q", cfg.Speech.Provider)
	}
	if cfg.AI.Enabled() {
		t.Error("AI should be disabled without credentials")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("DATABASE_URL", "postgres://localhost/practice")
	t.Setenv("ARK_API_KEY", "key")
	t.Setenv("Model", "doubao-pro")
	t.Setenv("ARK_TEMPERATURE", "0.4")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://app.example.com")
	t.Setenv("SPEECH_PROVIDER", "whisper")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.SessionBackend != BackendPostgres {
		t.Errorf("SessionBackend = %q, want postgres", cfg.Storage.SessionBackend)
	}
	if !cfg.AI.Enabled() || cfg.AI.Model != "doubao-pro" {
		t.Errorf("AI config not picked up: %+v", cfg.AI)
	}
	if cfg.AI.Temperature == nil || *cfg.AI.Temperature != 0.4 {
		t.Errorf("Temperature = %v", cfg.AI.Temperature)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Speech.Enabled() {
		t.Error("whisper provider should be enabled with default URL")
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing secret", env: map[string]string{}, want: "JWT_SECRET"},
		{name: "bad temperature", env: map[string]string{"JWT_SECRET": "s", "ARK_TEMPERATURE": "warm"}, want: "ARK_TEMPERATURE"},
		{name: "redis without url", env: map[string]string{"JWT_SECRET": "s", "SESSION_BACKEND": "redis"}, want: "REDIS_URL"},
		{name: "unknown backend", env: map[string]string{"JWT_SECRET": "s", "SESSION_BACKEND": "dynamo"}, want: "SESSION_BACKEND"},
		{name: "bad ttl", env: map[string]string{"JWT_SECRET": "s", "S3_UPLOAD_TTL": "soon"}, want: "S3_UPLOAD_TTL"},
		{name: "bad port", env: map[string]string{"JWT_SECRET": "s", "PORT": "80 80"}, want: "PORT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error mentioning %s", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %s", err, tc.want)
			}
		})
	}
}
