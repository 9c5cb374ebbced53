package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"

	"stakepit/internal/config"
)

func TestInitFileSink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	Init(config.LogConfig{Level: "debug", File: path, MaxMB: 1})
	defer Init(config.LogConfig{Level: "info"})

	log.Info().Str("component", "logging_test").Msg("hello")
	if _, err := fmt.Fprintln(Writer(), `{"check":"writer"}`); err != nil {
		t.Fatalf("write to sink: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(data, []byte("hello")) {
		t.Fatalf("log file missing zerolog line: %s", data)
	}
	if !bytes.Contains(data, []byte("writer")) {
		t.Fatalf("log file missing raw sink line: %s", data)
	}
}

func TestInitDefaultsToStdout(t *testing.T) {
	Init(config.LogConfig{Level: "info"})
	if Writer() != io.Writer(os.Stdout) {
		t.Fatal("expected stdout sink by default")
	}
}
