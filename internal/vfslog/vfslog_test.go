package vfslog_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/keshon/vfsengine/internal/vfslog"
)

func TestNewTextIncludesFixedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := vfslog.New(vfslog.Config{Writer: &buf}, "root-1", "actor-1")
	logger.Info("opened engine")

	out := buf.String()
	if !strings.Contains(out, "root_handle=root-1") {
		t.Errorf("expected root_handle field, got %q", out)
	}
	if !strings.Contains(out, "actor=actor-1") {
		t.Errorf("expected actor field, got %q", out)
	}
	if !strings.Contains(out, "opened engine") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestNewJSONIncludesFixedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := vfslog.New(vfslog.Config{Writer: &buf, JSON: true}, "root-1", "actor-1")
	logger.Warn("storage fault", "path", "/a")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected valid JSON line, got %q: %v", buf.String(), err)
	}
	if record["root_handle"] != "root-1" || record["actor"] != "actor-1" {
		t.Fatalf("expected fixed fields in JSON record, got %v", record)
	}
	if record["path"] != "/a" {
		t.Fatalf("expected call-site field to survive, got %v", record)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := vfslog.New(vfslog.Config{Writer: &buf, Level: slog.LevelWarn}, "root-1", "actor-1")
	logger.Info("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected Info to be filtered at Warn level, got %q", buf.String())
	}
	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatal("expected Warn to reach the writer")
	}
}

func TestNopDiscardsEverything(t *testing.T) {
	logger := vfslog.Nop()
	logger.Info("anything")
}
