package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jinjor/singing-bowls/src/audio"
)

func TestParseCommand(t *testing.T) {
	command, err := parseCommand("load %7B%22attack%22%3A0.1%7D")
	if err != nil {
		t.Fatalf("expected no error, but got: %v", err)
	}
	if len(command) != 2 || command[0] != "load" || command[1] != `{"attack":0.1}` {
		t.Errorf("unexpected command: %q", command)
	}
	if _, err := parseCommand("trigger %zz"); err == nil {
		t.Error("expected an error for a broken escape")
	}
}

func newOfflineEngine(t *testing.T) *audio.Engine {
	t.Helper()
	table, err := audio.BuiltinToneTable("bowls")
	if err != nil {
		t.Fatal(err)
	}
	engine := audio.NewEngine(table, audio.WithDevice(audio.NewOfflineDevice))
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestReports(t *testing.T) {
	engine := newOfflineEngine(t)
	if lines := reports(engine); len(lines) != 0 {
		t.Errorf("expected no reports, but got: %q", lines)
	}
	handleKey(engine, '1')
	handleKey(engine, '3')
	lines := reports(engine)
	if len(lines) != 1 || lines[0] != "active c e" {
		t.Errorf("unexpected reports: %q", lines)
	}
	handleKey(engine, '-')
	lines = reports(engine)
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "volume 0.6") {
		t.Errorf("unexpected reports: %q", lines)
	}
	handleKey(engine, 'x')
	lines = reports(engine)
	if len(lines) != 1 || lines[0] != "active" {
		t.Errorf("unexpected reports: %q", lines)
	}
}

func TestHandleKey(t *testing.T) {
	engine := newOfflineEngine(t)
	if !handleKey(engine, 'q') || !handleKey(engine, 3) {
		t.Error("expected q and Ctrl-C to quit")
	}
	if handleKey(engine, '9') || handleKey(engine, '?') {
		t.Error("expected no quit")
	}
	if len(engine.Active()) != 0 {
		t.Errorf("expected nothing active, but got: %v", engine.Active())
	}
}

func TestRunReturnsSetupErrors(t *testing.T) {
	oldSock, oldKeys, oldTones := *sockPath, *keys, *tonesPath
	defer func() {
		*sockPath, *keys, *tonesPath = oldSock, oldKeys, oldTones
	}()
	*keys = false

	*sockPath = filepath.Join(t.TempDir(), "missing", "x.sock")
	if err := run(); err == nil {
		t.Error("expected an error for an unusable socket path")
	}

	*tonesPath = filepath.Join(t.TempDir(), "missing.json")
	if err := run(); err == nil {
		t.Error("expected an error for a missing tone table")
	}
}
