/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/miekg/dns"
)

var (
	ErrResolution  = errors.New("resolution failed")
	ErrQueryFailed = errors.New("query failed")
)

// Resolver is the seam between verification logic and actual DNS
// traffic. QueryNS returns the nameserver names for a zone via the
// system resolver. QueryTXT asks one server for the TXT strings at
// name; an empty server means "use the system resolver".
type Resolver interface {
	QueryNS(zone string) ([]string, error)
	QueryTXT(name, server string) ([]string, error)
}

// LiveResolver talks real DNS through a DNSClient.
type LiveResolver struct {
	Client     *DNSClient
	Retries    int
	ResolvConf string
}

func NewLiveResolver(dc *DnsConf) (*LiveResolver, error) {
	transport, err := StringToTransport(dc.Transport)
	if err != nil {
		return nil, err
	}

	port := dc.Port
	if port == "" {
		port = DefaultDnsPort
	}
	retries := dc.Retries
	if retries < 1 {
		retries = DefaultDnsRetries
	}

	return &LiveResolver{
		Client:     NewDNSClient(transport, port, dc.Timeout, nil),
		Retries:    retries,
		ResolvConf: "/etc/resolv.conf",
	}, nil
}

func (lr *LiveResolver) QueryNS(zone string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(zone), dns.TypeNS)

	r, err := lr.exchangeSystem(m)
	if err != nil {
		return nil, err
	}

	var nss []string
	for _, rr := range r.Answer {
		if ns, ok := rr.(*dns.NS); ok {
			nss = append(nss, ns.Ns)
		}
	}
	return nss, nil
}

func (lr *LiveResolver) QueryTXT(name, server string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)

	var r *dns.Msg
	var err error
	if server == "" {
		r, err = lr.exchangeSystem(m)
	} else {
		r, err = lr.exchange(m, server)
	}
	if err != nil {
		return nil, err
	}

	var txts []string
	for _, rr := range r.Answer {
		if t, ok := rr.(*dns.TXT); ok {
			txts = append(txts, t.Txt...)
		}
	}
	return txts, nil
}

// exchange sends msg to one server, retrying with a short linear
// backoff on transport errors.
func (lr *LiveResolver) exchange(m *dns.Msg, server string) (*dns.Msg, error) {
	var lastErr error
	for attempt := 0; attempt < lr.Retries; attempt++ {
		backoff := time.Duration(attempt) * 100 * time.Millisecond
		time.Sleep(backoff)
		r, _, err := lr.Client.Exchange(m, server)
		if err != nil {
			lastErr = err
			if Globals.Verbose {
				log.Printf("attempt %d/%d: failed to lookup %s %s using server %s: %v",
					attempt+1, lr.Retries, m.Question[0].Name,
					dns.TypeToString[m.Question[0].Qtype], server, err)
			}
			continue
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s %s via %s: %v", ErrQueryFailed,
		m.Question[0].Name, dns.TypeToString[m.Question[0].Qtype], server, lastErr)
}

// exchangeSystem sends msg through the resolvers listed in
// resolv.conf, returning the first usable response.
func (lr *LiveResolver) exchangeSystem(m *dns.Msg) (*dns.Msg, error) {
	clientConfig, err := dns.ClientConfigFromFile(lr.ResolvConf)
	if err != nil {
		return nil, fmt.Errorf("failed to load DNS client configuration: %v", err)
	}
	if len(clientConfig.Servers) == 0 {
		return nil, fmt.Errorf("no DNS servers found in client configuration")
	}

	var lastErr error
	for _, server := range clientConfig.Servers {
		r, err := lr.exchange(m, server)
		if err != nil {
			lastErr = err
			continue
		}
		return r, nil
	}
	return nil, lastErr
}

// AuthoritativeNameservers returns the nameservers to query for the
// proof, without trailing dots. A non-empty NsOverride is used verbatim
// and suppresses the NS lookup entirely. An empty result with no error
// is possible and is the caller's problem.
func AuthoritativeNameservers(zone string, vc *VerifyConf, r Resolver) ([]string, error) {
	if len(vc.NsOverride) > 0 {
		var nss []string
		for _, ns := range vc.NsOverride {
			ns = strings.Trim(ns, ". ")
			if ns != "" {
				nss = append(nss, ns)
			}
		}
		return nss, nil
	}

	raw, err := r.QueryNS(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: zone %s: %v", ErrResolution, zone, err)
	}

	var nss []string
	for _, ns := range raw {
		ns = strings.TrimSuffix(strings.TrimSpace(ns), ".")
		if ns != "" {
			nss = append(nss, ns)
		}
	}
	return nss, nil
}
