/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"time"
)

// VerifyResult is the full outcome of one verification run, shaped for
// both the text report and the JSON API.
type VerifyResult struct {
	Target        string `json:",omitempty"`
	Time          time.Time
	Verdict       Verdict
	UsedNS        string
	RawTxt        string
	ExportDir     string
	MatchPath     string `json:",omitempty"`
	MatchMethod   string `json:",omitempty"`
	DnsTimestamp  string
	DnsSha256     string
	FileSha256    string `json:",omitempty"`
	SkewSeconds   int64
	NoMatch       bool
	LookbackFiles int
	Error         string `json:",omitempty"`
}

type Verifier struct {
	Conf     *VerifyConf
	Resolver Resolver
}

func NewVerifier(vc *VerifyConf, r Resolver) *Verifier {
	return &Verifier{Conf: vc, Resolver: r}
}

// Run performs one complete verification: fetch the TXT proof, parse
// it, find the matching local export and judge hash and skew. A missing
// local match is a FAIL result, not an error; errors are reserved for
// runs that could not produce a verdict at all.
func (v *Verifier) Run() (*VerifyResult, error) {
	vc := v.Conf

	txt, usedNS, err := FetchTxt(vc, v.Resolver)
	if err != nil {
		return nil, err
	}

	proof, err := ParseProof(txt)
	if err != nil {
		return nil, err
	}

	dnsTs, err := ParseTimestamp(proof.Timestamp)
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{
		Time:          time.Now(),
		UsedNS:        usedNS,
		RawTxt:        txt,
		ExportDir:     vc.ExportDir,
		DnsTimestamp:  proof.Timestamp,
		DnsSha256:     proof.ContentHash,
		LookbackFiles: vc.LookbackFiles,
	}

	match, err := FindMatch(vc, proof)
	if err != nil {
		if errors.Is(err, ErrNoLocalMatch) {
			res.Verdict = VerdictFail
			res.NoMatch = true
			return res, nil
		}
		return nil, err
	}

	fileSha, err := HashFile(match.Path)
	if err != nil {
		return nil, err
	}

	res.MatchPath = match.Path
	res.MatchMethod = match.Method
	res.FileSha256 = fileSha
	res.SkewSeconds = match.ModTime.Unix() - dnsTs
	res.Verdict = ComputeVerdict(fileSha == proof.ContentHash, res.SkewSeconds, vc)

	return res, nil
}
