/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/twotwotwo/sorts"
)

var ErrNoLocalMatch = errors.New("no matching export found")

const (
	MatchByFilename = "matched_by_filename"
	MatchByHashScan = "matched_by_hash_scan"
)

// EvidenceFile is one export candidate on disk.
type EvidenceFile struct {
	Path    string
	ModTime time.Time
}

// Match is a located piece of evidence plus how it was found.
type Match struct {
	Path    string
	ModTime time.Time
	Method  string
}

type byMtimeDesc []EvidenceFile

func (s byMtimeDesc) Len() int           { return len(s) }
func (s byMtimeDesc) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s byMtimeDesc) Less(i, j int) bool { return s[i].ModTime.After(s[j].ModTime) }

func quickSort(sortable sort.Interface) {
	sorts.Quicksort(sortable)
}

// NewestEvidenceFiles lists the files under exportDir that match
// pattern, newest first, capped at n. Candidates that cannot be
// stat'ed are skipped.
func NewestEvidenceFiles(exportDir, pattern string, n int) ([]EvidenceFile, error) {
	paths, err := filepath.Glob(filepath.Join(exportDir, pattern))
	if err != nil {
		return nil, err
	}

	files := make([]EvidenceFile, 0, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		files = append(files, EvidenceFile{Path: p, ModTime: fi.ModTime()})
	}

	quickSort(byMtimeDesc(files))
	if n > 0 && len(files) > n {
		files = files[:n]
	}
	return files, nil
}

// FindMatch locates the local evidence file the proof commits to. If
// the proof names a file and that file exists under the export dir, it
// wins outright, without any hash check here. Otherwise the newest
// LookbackFiles exports are digested until one matches the committed
// hash. Unreadable candidates are skipped.
func FindMatch(vc *VerifyConf, proof *DnsProof) (*Match, error) {
	if proof.Filename != "" {
		p := filepath.Join(vc.ExportDir, proof.Filename)
		if mt, err := FileMtime(p); err == nil {
			return &Match{Path: p, ModTime: mt, Method: MatchByFilename}, nil
		}
	}

	files, err := NewestEvidenceFiles(vc.ExportDir, vc.FilePattern, vc.LookbackFiles)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		sum, err := HashFile(f.Path)
		if err != nil {
			continue
		}
		if strings.ToLower(sum) == proof.ContentHash {
			return &Match{Path: f.Path, ModTime: f.ModTime, Method: MatchByHashScan}, nil
		}
	}

	return nil, fmt.Errorf("%w in last %d files under %s", ErrNoLocalMatch,
		vc.LookbackFiles, vc.ExportDir)
}
