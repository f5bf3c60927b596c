package deps

import (
	"os"
	"path/filepath"
	"testing"

	"storyforge/internal/config"
)

func TestCheck(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	statuses := Check([]Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "   "},
	})
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}

	if !statuses[0].Available {
		t.Fatalf("expected stub to be available, got %#v", statuses[0])
	}
	if statuses[0].Detail != "" {
		t.Fatalf("unexpected detail for available binary: %s", statuses[0].Detail)
	}

	if statuses[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if statuses[1].Detail == "" {
		t.Fatal("expected detail for missing binary")
	}

	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for blank command: %#v", statuses[2])
	}
}

func TestForListsConfiguredBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.Transcode.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"

	requirements := For(&cfg)
	if len(requirements) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(requirements))
	}
	if requirements[0].Command != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("unexpected ffmpeg command: %s", requirements[0].Command)
	}
	if requirements[0].Optional {
		t.Fatal("ffmpeg must not be optional")
	}
	if !requirements[1].Optional {
		t.Fatal("ffprobe should be optional")
	}
}
