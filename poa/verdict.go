/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"encoding/json"
	"fmt"
)

type Verdict uint8

const (
	VerdictOK Verdict = iota + 1
	VerdictWarn
	VerdictFail
)

var VerdictToString = map[Verdict]string{
	VerdictOK:   "OK",
	VerdictWarn: "WARN",
	VerdictFail: "FAIL",
}

var StringToVerdict = map[string]Verdict{
	"OK":   VerdictOK,
	"WARN": VerdictWarn,
	"FAIL": VerdictFail,
}

func (v Verdict) String() string {
	if s, ok := VerdictToString[v]; ok {
		return s
	}
	return fmt.Sprintf("Verdict(%d)", uint8(v))
}

// ExitCode maps a verdict to the process exit code contract:
// OK=0, WARN=1, FAIL (and anything unknown)=2.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictOK:
		return 0
	case VerdictWarn:
		return 1
	default:
		return 2
	}
}

func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Verdict) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tmp, ok := StringToVerdict[s]
	if !ok {
		return fmt.Errorf("unknown verdict: %q", s)
	}
	*v = tmp
	return nil
}

// ComputeVerdict decides the outcome for a matched evidence file. A
// content hash mismatch is always FAIL, regardless of skew. Otherwise
// the absolute skew between file mtime and the published timestamp
// decides: within WarnSkewSeconds is OK, anything beyond that is WARN.
func ComputeVerdict(hashMatches bool, skewSeconds int64, vc *VerifyConf) Verdict {
	if !hashMatches {
		return VerdictFail
	}

	abs := skewSeconds
	if abs < 0 {
		abs = -abs
	}

	if abs <= int64(vc.WarnSkewSeconds) {
		return VerdictOK
	}
	if abs <= int64(vc.FailSkewSeconds) {
		return VerdictWarn
	}
	// Beyond FailSkewSeconds the verdict stays WARN. The hash already
	// proves the commitment matches on-disk evidence, so skew alone
	// never escalates to FAIL.
	return VerdictWarn
}
