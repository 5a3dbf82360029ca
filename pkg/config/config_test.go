package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SUPABASE_URL", "https://test.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.StorageBucket != "recordings" {
		t.Errorf("StorageBucket = %q", cfg.StorageBucket)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d", cfg.WorkerCount)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("STORAGE_BUCKET", "memos")
	t.Setenv("WORKER_COUNT", "8")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.StorageBucket != "memos" || cfg.WorkerCount != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for missing service role key")
	}
}

func TestFromEnvBadWorkerCount(t *testing.T) {
	setRequired(t)
	t.Setenv("WORKER_COUNT", "zero")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want default", cfg.WorkerCount)
	}
}
