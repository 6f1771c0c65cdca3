/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var ErrBadTimestamp = errors.New("bad timestamp")

// HashFile computes the hex-encoded SHA-256 digest of path, reading in
// HashChunkSize chunks so that large evidence exports never get pulled
// into memory whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, HashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func FileMtime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// ParseTimestamp parses an ISO 8601 timestamp as published in the TXT
// record into a Unix epoch (seconds). A trailing "Z" means UTC, as does
// a timestamp without any offset at all. A space between date and time
// is tolerated.
func ParseTimestamp(ts string) (int64, error) {
	s := strings.TrimSpace(ts)
	if s == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrBadTimestamp)
	}

	s = strings.Replace(s, "Z", "+00:00", 1)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}

	if !hasUTCOffset(s) {
		s += "+00:00"
	}

	t, err := time.Parse("2006-01-02T15:04:05Z07:00", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadTimestamp, err)
	}
	return t.Unix(), nil
}

// hasUTCOffset reports whether the time-of-day part carries an explicit
// +hh:mm or -hh:mm offset. Only the part after the date separator is
// inspected, so the date's own dashes don't count.
func hasUTCOffset(s string) bool {
	i := strings.Index(s, "T")
	if i < 0 {
		return false
	}
	rest := s[i+1:]
	return strings.ContainsAny(rest, "+-")
}
