package maintenance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBackupNow(t *testing.T) {
	dir := t.TempDir()
	presets := filepath.Join(dir, "presets.json")
	if err := os.WriteFile(presets, []byte(`{"version":1,"next_id":2,"scenes":[]}`), 0644); err != nil {
		t.Fatal(err)
	}

	s := New("127.0.0.1:80", presets, filepath.Join(dir, "backups"), nil)
	path, err := s.BackupNow()
	if err != nil {
		t.Fatalf("BackupNow: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	orig, _ := os.ReadFile(presets)
	if string(data) != string(orig) {
		t.Error("backup content differs from source")
	}
}

func TestBackupMissingSource(t *testing.T) {
	dir := t.TempDir()
	s := New("127.0.0.1:80", filepath.Join(dir, "nope.json"), filepath.Join(dir, "backups"), nil)
	if _, err := s.BackupNow(); !os.IsNotExist(err) {
		t.Errorf("BackupNow err = %v, want not-exist", err)
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	backups := filepath.Join(dir, "backups")
	if err := os.MkdirAll(backups, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < keepBackups+3; i++ {
		name := fmt.Sprintf("presets-2026010%d-000000.json", i)
		if err := os.WriteFile(filepath.Join(backups, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s := New("127.0.0.1:80", "", backups, nil)
	s.prune()

	entries, err := os.ReadDir(backups)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != keepBackups {
		t.Errorf("%d backups remain, want %d", len(entries), keepBackups)
	}
	// lexicographically smallest (oldest) must be gone
	if _, err := os.Stat(filepath.Join(backups, "presets-20260100-000000.json")); !os.IsNotExist(err) {
		t.Error("oldest backup not pruned")
	}
}

func TestProbeReportsTransitions(t *testing.T) {
	orig := dialFunc
	defer func() { dialFunc = orig }()

	online := true
	dialFunc = func(network, address string, timeout time.Duration) (net.Conn, error) {
		if online {
			a, b := net.Pipe()
			go func() { b.Close() }()
			return a, nil
		}
		return nil, errors.New("connection refused")
	}

	transitions := make(chan bool, 4)
	s := New("10.0.0.1:80", "", "", func(up bool) { transitions <- up })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.runProbe(ctx)

	select {
	case up := <-transitions:
		if !up {
			t.Error("first probe reported offline")
		}
	case <-time.After(time.Second):
		t.Fatal("no initial reachability callback")
	}
}
