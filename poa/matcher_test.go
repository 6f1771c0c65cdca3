/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeExport creates one evidence file with a fixed mtime and returns its path.
func writeExport(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes(%s) failed: %v", name, err)
	}
	return path
}

// TestNewestEvidenceFiles tests pattern filtering, ordering and the cap
func TestNewestEvidenceFiles(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-6 * time.Hour)

	writeExport(t, dir, "heartbeats_a.json", "a", base)
	writeExport(t, dir, "heartbeats_b.json", "b", base.Add(1*time.Hour))
	writeExport(t, dir, "heartbeats_c.json", "c", base.Add(2*time.Hour))
	writeExport(t, dir, "other.txt", "x", base.Add(3*time.Hour))

	files, err := NewestEvidenceFiles(dir, "heartbeats_*.json", 2)
	if err != nil {
		t.Fatalf("NewestEvidenceFiles() failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("NewestEvidenceFiles() returned %d files, want 2", len(files))
	}
	if filepath.Base(files[0].Path) != "heartbeats_c.json" {
		t.Errorf("newest file = %s, want heartbeats_c.json", files[0].Path)
	}
	if filepath.Base(files[1].Path) != "heartbeats_b.json" {
		t.Errorf("second file = %s, want heartbeats_b.json", files[1].Path)
	}

	all, err := NewestEvidenceFiles(dir, "heartbeats_*.json", 300)
	if err != nil {
		t.Fatalf("NewestEvidenceFiles() failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("NewestEvidenceFiles() returned %d files, want 3", len(all))
	}
}

// TestFindMatchByFilename tests that a proof-named file wins without any
// hash comparison, even when another file carries the committed hash
func TestFindMatchByFilename(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	named := writeExport(t, dir, "heartbeats_named.json", "something else entirely", base)
	writeExport(t, dir, "heartbeats_hashed.json", "abc", base.Add(time.Minute))

	vc := &VerifyConf{ExportDir: dir, FilePattern: "heartbeats_*.json", LookbackFiles: 300}
	proof := &DnsProof{
		Timestamp:   "2024-01-01T00:00:00Z",
		ContentHash: testHash,
		Filename:    "heartbeats_named.json",
	}

	match, err := FindMatch(vc, proof)
	if err != nil {
		t.Fatalf("FindMatch() failed: %v", err)
	}
	if match.Method != MatchByFilename {
		t.Errorf("Method = %s, want %s", match.Method, MatchByFilename)
	}
	if match.Path != named {
		t.Errorf("Path = %s, want %s", match.Path, named)
	}
}

// TestFindMatchByHashScan tests the digest scan when no filename is published
func TestFindMatchByHashScan(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	writeExport(t, dir, "heartbeats_1.json", "one", base)
	want := writeExport(t, dir, "heartbeats_2.json", "abc", base.Add(time.Minute))

	vc := &VerifyConf{ExportDir: dir, FilePattern: "heartbeats_*.json", LookbackFiles: 300}
	proof := &DnsProof{Timestamp: "2024-01-01T00:00:00Z", ContentHash: testHash}

	match, err := FindMatch(vc, proof)
	if err != nil {
		t.Fatalf("FindMatch() failed: %v", err)
	}
	if match.Method != MatchByHashScan {
		t.Errorf("Method = %s, want %s", match.Method, MatchByHashScan)
	}
	if match.Path != want {
		t.Errorf("Path = %s, want %s", match.Path, want)
	}
}

// TestFindMatchMissingNamedFileFallsBack tests that a published filename
// that does not exist on disk drops through to the hash scan
func TestFindMatchMissingNamedFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	want := writeExport(t, dir, "heartbeats_1.json", "abc", time.Now().Add(-time.Hour))

	vc := &VerifyConf{ExportDir: dir, FilePattern: "heartbeats_*.json", LookbackFiles: 300}
	proof := &DnsProof{
		Timestamp:   "2024-01-01T00:00:00Z",
		ContentHash: testHash,
		Filename:    "heartbeats_gone.json",
	}

	match, err := FindMatch(vc, proof)
	if err != nil {
		t.Fatalf("FindMatch() failed: %v", err)
	}
	if match.Method != MatchByHashScan {
		t.Errorf("Method = %s, want %s", match.Method, MatchByHashScan)
	}
	if match.Path != want {
		t.Errorf("Path = %s, want %s", match.Path, want)
	}
}

// TestFindMatchLookbackBound tests that files beyond the lookback window
// are never considered by the hash scan
func TestFindMatchLookbackBound(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-6 * time.Hour)

	// The only file with the committed hash is also the oldest one.
	writeExport(t, dir, "heartbeats_old.json", "abc", base)
	writeExport(t, dir, "heartbeats_mid.json", "mid", base.Add(1*time.Hour))
	writeExport(t, dir, "heartbeats_new.json", "new", base.Add(2*time.Hour))

	vc := &VerifyConf{ExportDir: dir, FilePattern: "heartbeats_*.json", LookbackFiles: 2}
	proof := &DnsProof{Timestamp: "2024-01-01T00:00:00Z", ContentHash: testHash}

	_, err := FindMatch(vc, proof)
	if err == nil {
		t.Fatal("FindMatch() should fail when the match is outside the lookback window")
	}
	if !errors.Is(err, ErrNoLocalMatch) {
		t.Errorf("FindMatch() error = %v, want ErrNoLocalMatch", err)
	}
}

// TestFindMatchSkipsUnreadable tests that a candidate that cannot be
// digested does not abort the scan
func TestFindMatchSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	// A directory matching the glob cannot be hashed and must be skipped.
	if err := os.Mkdir(filepath.Join(dir, "heartbeats_dir.json"), 0755); err != nil {
		t.Fatalf("Mkdir() failed: %v", err)
	}
	if err := os.Chtimes(filepath.Join(dir, "heartbeats_dir.json"), base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatalf("Chtimes() failed: %v", err)
	}
	want := writeExport(t, dir, "heartbeats_good.json", "abc", base)

	vc := &VerifyConf{ExportDir: dir, FilePattern: "heartbeats_*.json", LookbackFiles: 300}
	proof := &DnsProof{Timestamp: "2024-01-01T00:00:00Z", ContentHash: testHash}

	match, err := FindMatch(vc, proof)
	if err != nil {
		t.Fatalf("FindMatch() failed: %v", err)
	}
	if match.Path != want {
		t.Errorf("Path = %s, want %s", match.Path, want)
	}
}

// TestFindMatchNoMatch tests the no-match error
func TestFindMatchNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "heartbeats_1.json", "nothing alike", time.Now().Add(-time.Hour))

	vc := &VerifyConf{ExportDir: dir, FilePattern: "heartbeats_*.json", LookbackFiles: 300}
	proof := &DnsProof{Timestamp: "2024-01-01T00:00:00Z", ContentHash: testHash}

	_, err := FindMatch(vc, proof)
	if !errors.Is(err, ErrNoLocalMatch) {
		t.Errorf("FindMatch() error = %v, want ErrNoLocalMatch", err)
	}
}
