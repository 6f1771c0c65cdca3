/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadProofFormat = errors.New("unrecognized TXT format")

// DnsProof is the commitment published in the TXT record: when the
// evidence was exported, the SHA-256 of the export, and (optionally)
// its filename.
type DnsProof struct {
	Timestamp   string
	ContentHash string
	Filename    string
}

// CleanTxt normalizes raw TXT output that may still carry the quoting
// dig produces. A record split into multiple quoted parts, like
// "TS=...;SHA" "256=...", is merged by concatenating the quoted
// segments. Input without balanced quotes just has quote characters
// stripped.
func CleanTxt(txt string) string {
	var merged strings.Builder
	inQuote := false
	found := false

	for i := 0; i < len(txt); i++ {
		c := txt[i]
		if c == '"' {
			if inQuote {
				found = true
			}
			inQuote = !inQuote
			continue
		}
		if inQuote {
			merged.WriteByte(c)
		}
	}

	if found {
		return strings.TrimSpace(merged.String())
	}
	return strings.TrimSpace(strings.ReplaceAll(txt, "\"", ""))
}

// ParseProof extracts TS, SHA256 and FILE fields from a proof TXT
// string. Fields are key=value pairs terminated by ";" and may appear
// in any order. TS and a well-formed 64 char hex SHA256 are required,
// FILE is optional.
func ParseProof(txt string) (*DnsProof, error) {
	s := strings.Trim(txt, "\" ")

	ts := fieldValue(s, "TS=")
	hash := fieldValue(s, "SHA256=")
	file := fieldValue(s, "FILE=")

	if ts == "" || !valid64Hex(hash) {
		return nil, fmt.Errorf("%w: %s", ErrBadProofFormat, txt)
	}

	return &DnsProof{
		Timestamp:   ts,
		ContentHash: strings.ToLower(hash),
		Filename:    file,
	}, nil
}

// fieldValue returns the value of the first occurrence of key in s,
// cut at the next ";" if one follows.
func fieldValue(s, key string) string {
	i := strings.Index(s, key)
	if i < 0 {
		return ""
	}
	v := s[i+len(key):]
	if j := strings.IndexByte(v, ';'); j >= 0 {
		v = v[:j]
	}
	return v
}

func valid64Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
