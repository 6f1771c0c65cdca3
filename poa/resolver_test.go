/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"testing"
)

// TestAuthoritativeNameservers tests NS discovery and the override path
func TestAuthoritativeNameservers(t *testing.T) {
	t.Run("OverrideSuppressesLookup", func(t *testing.T) {
		vc := &VerifyConf{NsOverride: []string{"ns1.example.com.", " ns2.example.com ", ""}}
		fake := &fakeResolver{ns: map[string][]string{"uptimeproof.io": {"ignored.example.net."}}}

		nss, err := AuthoritativeNameservers("uptimeproof.io", vc, fake)
		if err != nil {
			t.Fatalf("AuthoritativeNameservers() failed: %v", err)
		}
		if len(nss) != 2 || nss[0] != "ns1.example.com" || nss[1] != "ns2.example.com" {
			t.Errorf("nss = %v, want [ns1.example.com ns2.example.com]", nss)
		}
		if fake.nsCalls != 0 {
			t.Errorf("QueryNS was called %d times, override must suppress it", fake.nsCalls)
		}
	})

	t.Run("FromNSQuery", func(t *testing.T) {
		vc := &VerifyConf{}
		fake := &fakeResolver{ns: map[string][]string{"uptimeproof.io": {"ns1.example.net.", "ns2.example.net."}}}

		nss, err := AuthoritativeNameservers("uptimeproof.io", vc, fake)
		if err != nil {
			t.Fatalf("AuthoritativeNameservers() failed: %v", err)
		}
		if len(nss) != 2 || nss[0] != "ns1.example.net" || nss[1] != "ns2.example.net" {
			t.Errorf("nss = %v", nss)
		}
		if fake.nsCalls != 1 {
			t.Errorf("QueryNS was called %d times, want 1", fake.nsCalls)
		}
	})

	t.Run("QueryError", func(t *testing.T) {
		vc := &VerifyConf{}
		fake := &fakeResolver{nsErr: errors.New("SERVFAIL")}

		_, err := AuthoritativeNameservers("uptimeproof.io", vc, fake)
		if !errors.Is(err, ErrResolution) {
			t.Errorf("AuthoritativeNameservers() error = %v, want ErrResolution", err)
		}
	})

	t.Run("EmptyAnswerIsNotAnError", func(t *testing.T) {
		vc := &VerifyConf{}
		fake := &fakeResolver{}

		nss, err := AuthoritativeNameservers("uptimeproof.io", vc, fake)
		if err != nil {
			t.Fatalf("AuthoritativeNameservers() failed: %v", err)
		}
		if len(nss) != 0 {
			t.Errorf("nss = %v, want empty", nss)
		}
	})
}

// TestNewLiveResolver tests construction from a dns config section
func TestNewLiveResolver(t *testing.T) {
	lr, err := NewLiveResolver(&DnsConf{Transport: "do53"})
	if err != nil {
		t.Fatalf("NewLiveResolver() failed: %v", err)
	}
	if lr.Client == nil {
		t.Fatal("NewLiveResolver() returned nil client")
	}
	if lr.Client.Port != DefaultDnsPort {
		t.Errorf("Port = %s, want %s", lr.Client.Port, DefaultDnsPort)
	}
	if lr.Retries != DefaultDnsRetries {
		t.Errorf("Retries = %d, want %d", lr.Retries, DefaultDnsRetries)
	}
	if lr.ResolvConf != "/etc/resolv.conf" {
		t.Errorf("ResolvConf = %s", lr.ResolvConf)
	}

	if _, err := NewLiveResolver(&DnsConf{Transport: "smoke-signals"}); err == nil {
		t.Error("NewLiveResolver() should reject an unknown transport")
	}
}
