// Package maintenance provides background goroutines for biasd:
// amplifier reachability probing and preset store backups.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// dialFunc is a variable so tests can inject a mock dialer.
var dialFunc = func(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

const (
	probeInterval  = 30 * time.Second
	probeTimeout   = 3 * time.Second
	backupInterval = 24 * time.Hour
	keepBackups    = 7
)

// Service manages background maintenance goroutines for one amplifier.
type Service struct {
	ampAddr     string // host:port of the amplifier's control plane
	presetsPath string // document to back up
	backupDir   string
	onOnline    func(bool) // callback when reachability changes
}

// New creates a maintenance Service. presetsPath may be empty to
// disable backups.
func New(ampAddr, presetsPath, backupDir string, onOnline func(bool)) *Service {
	return &Service{
		ampAddr:     ampAddr,
		presetsPath: presetsPath,
		backupDir:   backupDir,
		onOnline:    onOnline,
	}
}

// Start launches the maintenance goroutines and blocks until ctx is
// cancelled; all goroutines respect the context.
func (s *Service) Start(ctx context.Context) {
	go s.runProbe(ctx)
	if s.presetsPath != "" {
		go s.runBackup(ctx)
	}
	<-ctx.Done()
}

// runProbe checks amplifier reachability on a fixed interval and fires
// the callback on transitions.
func (s *Service) runProbe(ctx context.Context) {
	lastStatus := false
	first := true

	check := func() {
		conn, err := dialFunc("tcp", s.ampAddr, probeTimeout)
		online := err == nil
		if conn != nil {
			conn.Close()
		}

		if first || online != lastStatus {
			first = false
			lastStatus = online
			if s.onOnline != nil {
				s.onOnline(online)
			}
			slog.Info("maintenance: amplifier reachability", "addr", s.ampAddr, "online", online)
		}
	}

	check() // immediate first check

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// runBackup snapshots the preset document daily, pruning old copies.
func (s *Service) runBackup(ctx context.Context) {
	backup := func() {
		if path, err := s.BackupNow(); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("maintenance: preset backup failed", "err", err)
			}
		} else {
			slog.Info("maintenance: preset store backed up", "path", path)
		}
	}

	backup()

	ticker := time.NewTicker(backupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			backup()
		}
	}
}

// BackupNow copies the preset document into the backup directory and
// returns the backup file path.
func (s *Service) BackupNow() (string, error) {
	data, err := os.ReadFile(s.presetsPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.backupDir, 0755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("presets-%s.json", time.Now().Format("20060102-150405"))
	path := filepath.Join(s.backupDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	s.prune()
	return path, nil
}

// prune removes all but the newest keepBackups copies.
func (s *Service) prune() {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "presets-") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for len(names) > keepBackups {
		if err := os.Remove(filepath.Join(s.backupDir, names[0])); err != nil {
			slog.Warn("maintenance: failed to prune backup", "file", names[0], "err", err)
		}
		names = names[1:]
	}
}
