package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gcefire.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestLoad_Defaults(t *testing.T) {
	writeConfig(t, "project: test-project\nzone: us-east1-c\n")
	t.Setenv("GCP_PROJECT", "")
	t.Setenv("GCP_ZONE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Username != "gcefire" {
		t.Errorf("Username = %q, want gcefire", cfg.Username)
	}
	if cfg.MaxInstances != 10 {
		t.Errorf("MaxInstances = %d, want 10", cfg.MaxInstances)
	}
	if cfg.RetryWait != 5 || cfg.MaxRetry != 5 {
		t.Errorf("retry defaults = %d/%d, want 5/5", cfg.RetryWait, cfg.MaxRetry)
	}
	if cfg.ImageProject != "test-project" {
		t.Errorf("ImageProject = %q, want fallback to project", cfg.ImageProject)
	}
}

func TestLoad_MissingProject(t *testing.T) {
	writeConfig(t, "zone: us-east1-c\n")
	t.Setenv("GCP_PROJECT", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for missing project")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	writeConfig(t, "project: file-project\nzone: file-zone\nimage_project: images-project\n")
	t.Setenv("GCP_PROJECT", "env-project")
	t.Setenv("GCP_ZONE", "env-zone")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/creds.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Project != "env-project" {
		t.Errorf("Project = %q, want env-project", cfg.Project)
	}
	if cfg.Zone != "env-zone" {
		t.Errorf("Zone = %q, want env-zone", cfg.Zone)
	}
	if cfg.CredentialsFile != "/tmp/creds.json" {
		t.Errorf("CredentialsFile = %q, want /tmp/creds.json", cfg.CredentialsFile)
	}
	if cfg.ImageProject != "images-project" {
		t.Errorf("ImageProject = %q, want images-project", cfg.ImageProject)
	}
}

func TestLoad_ExpandsEnvInFields(t *testing.T) {
	writeConfig(t, "project: ${TEST_FIRE_PROJECT}\nzone: us-east1-c\n")
	t.Setenv("GCP_PROJECT", "")
	t.Setenv("TEST_FIRE_PROJECT", "expanded-project")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Project != "expanded-project" {
		t.Errorf("Project = %q, want expanded-project", cfg.Project)
	}
}
