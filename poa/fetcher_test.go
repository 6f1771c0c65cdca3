/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeResolver serves canned DNS answers. TXT answers are keyed
// "name@server"; the key "name@" holds the system resolver answer.
type fakeResolver struct {
	ns       map[string][]string
	nsErr    error
	txt      map[string][]string
	txtErr   map[string]error
	nsCalls  int
	txtCalls []string
}

func (f *fakeResolver) QueryNS(zone string) ([]string, error) {
	f.nsCalls++
	if f.nsErr != nil {
		return nil, f.nsErr
	}
	return f.ns[zone], nil
}

func (f *fakeResolver) QueryTXT(name, server string) ([]string, error) {
	key := name + "@" + server
	f.txtCalls = append(f.txtCalls, key)
	if err, ok := f.txtErr[key]; ok {
		return nil, err
	}
	return f.txt[key], nil
}

func proofTxt() string {
	return fmt.Sprintf("TS=2024-01-01T00:00:00Z;SHA256=%s;FILE=heartbeats_1.json", testHash)
}

// TestFetchTxtFirstSuccessWins tests that nameservers after the first
// one that answers are never queried
func TestFetchTxtFirstSuccessWins(t *testing.T) {
	vc := &VerifyConf{DnsName: "_poa.uptimeproof.io", DnsZone: "uptimeproof.io"}
	fake := &fakeResolver{
		ns: map[string][]string{"uptimeproof.io": {"ns1.example.net.", "ns2.example.net."}},
		txt: map[string][]string{
			"_poa.uptimeproof.io@ns1.example.net": {proofTxt()},
			"_poa.uptimeproof.io@ns2.example.net": {proofTxt()},
		},
	}

	txt, usedNS, err := FetchTxt(vc, fake)
	if err != nil {
		t.Fatalf("FetchTxt() failed: %v", err)
	}
	if usedNS != "ns1.example.net" {
		t.Errorf("usedNS = %s, want ns1.example.net", usedNS)
	}
	if txt != proofTxt() {
		t.Errorf("txt = %q", txt)
	}
	if len(fake.txtCalls) != 1 {
		t.Errorf("txtCalls = %v, want a single query", fake.txtCalls)
	}
}

// TestFetchTxtSkipsFailingNS tests that a query error on one nameserver
// moves on to the next
func TestFetchTxtSkipsFailingNS(t *testing.T) {
	vc := &VerifyConf{DnsName: "_poa.uptimeproof.io", DnsZone: "uptimeproof.io"}
	fake := &fakeResolver{
		ns:     map[string][]string{"uptimeproof.io": {"ns1.example.net.", "ns2.example.net."}},
		txtErr: map[string]error{"_poa.uptimeproof.io@ns1.example.net": errors.New("connection refused")},
		txt: map[string][]string{
			"_poa.uptimeproof.io@ns2.example.net": {proofTxt()},
		},
	}

	_, usedNS, err := FetchTxt(vc, fake)
	if err != nil {
		t.Fatalf("FetchTxt() failed: %v", err)
	}
	if usedNS != "ns2.example.net" {
		t.Errorf("usedNS = %s, want ns2.example.net", usedNS)
	}
}

// TestFetchTxtSkipsEmptyAnswer tests that an empty TXT answer is treated
// like a failure for that nameserver
func TestFetchTxtSkipsEmptyAnswer(t *testing.T) {
	vc := &VerifyConf{DnsName: "_poa.uptimeproof.io", DnsZone: "uptimeproof.io"}
	fake := &fakeResolver{
		ns: map[string][]string{"uptimeproof.io": {"ns1.example.net.", "ns2.example.net."}},
		txt: map[string][]string{
			"_poa.uptimeproof.io@ns2.example.net": {proofTxt()},
		},
	}

	_, usedNS, err := FetchTxt(vc, fake)
	if err != nil {
		t.Fatalf("FetchTxt() failed: %v", err)
	}
	if usedNS != "ns2.example.net" {
		t.Errorf("usedNS = %s, want ns2.example.net", usedNS)
	}
}

// TestFetchTxtNoSystemFallbackByDefault tests that the system resolver is
// never consulted unless explicitly allowed
func TestFetchTxtNoSystemFallbackByDefault(t *testing.T) {
	vc := &VerifyConf{DnsName: "_poa.uptimeproof.io", DnsZone: "uptimeproof.io"}
	fake := &fakeResolver{
		ns: map[string][]string{"uptimeproof.io": {"ns1.example.net."}},
		txt: map[string][]string{
			"_poa.uptimeproof.io@": {proofTxt()},
		},
	}

	_, _, err := FetchTxt(vc, fake)
	if err == nil {
		t.Fatal("FetchTxt() should fail when no authoritative NS answers")
	}
	if !errors.Is(err, ErrNoTXTRecord) {
		t.Errorf("FetchTxt() error = %v, want ErrNoTXTRecord", err)
	}
	for _, call := range fake.txtCalls {
		if strings.HasSuffix(call, "@") {
			t.Errorf("system resolver was queried: %v", fake.txtCalls)
		}
	}
}

// TestFetchTxtSystemFallback tests the opt-in system resolver fallback
func TestFetchTxtSystemFallback(t *testing.T) {
	vc := &VerifyConf{
		DnsName:             "_poa.uptimeproof.io",
		DnsZone:             "uptimeproof.io",
		AllowSystemResolver: true,
	}
	fake := &fakeResolver{
		ns: map[string][]string{"uptimeproof.io": {"ns1.example.net."}},
		txt: map[string][]string{
			"_poa.uptimeproof.io@": {proofTxt()},
		},
	}

	txt, usedNS, err := FetchTxt(vc, fake)
	if err != nil {
		t.Fatalf("FetchTxt() failed: %v", err)
	}
	if usedNS != SystemResolverLabel {
		t.Errorf("usedNS = %s, want %s", usedNS, SystemResolverLabel)
	}
	if txt != proofTxt() {
		t.Errorf("txt = %q", txt)
	}
}

// TestFetchTxtMergesSegments tests that multi-segment TXT answers are
// concatenated before normalization, even when the split lands inside
// the hex digest
func TestFetchTxtMergesSegments(t *testing.T) {
	vc := &VerifyConf{DnsName: "_poa.uptimeproof.io", DnsZone: "uptimeproof.io"}
	whole := proofTxt()
	cut := strings.Index(whole, "SHA256=") + len("SHA256=") + 10
	fake := &fakeResolver{
		ns: map[string][]string{"uptimeproof.io": {"ns1.example.net."}},
		txt: map[string][]string{
			"_poa.uptimeproof.io@ns1.example.net": {whole[:cut], whole[cut:]},
		},
	}

	txt, _, err := FetchTxt(vc, fake)
	if err != nil {
		t.Fatalf("FetchTxt() failed: %v", err)
	}
	if txt != whole {
		t.Errorf("txt = %q, want %q", txt, whole)
	}

	proof, err := ParseProof(txt)
	if err != nil {
		t.Fatalf("ParseProof() after merge failed: %v", err)
	}
	if proof.ContentHash != testHash {
		t.Errorf("ContentHash = %q, want %q", proof.ContentHash, testHash)
	}
}

// TestFetchTxtNoNameservers tests the error when the zone has no usable
// nameservers at all
func TestFetchTxtNoNameservers(t *testing.T) {
	vc := &VerifyConf{DnsName: "_poa.uptimeproof.io", DnsZone: "uptimeproof.io"}
	fake := &fakeResolver{}

	_, _, err := FetchTxt(vc, fake)
	if !errors.Is(err, ErrNoTXTRecord) {
		t.Errorf("FetchTxt() error = %v, want ErrNoTXTRecord", err)
	}
}
