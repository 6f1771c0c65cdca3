/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

var ErrNoTXTRecord = errors.New("no TXT record")

// SystemResolverLabel is reported instead of a nameserver name when the
// proof was obtained through the system resolver fallback.
const SystemResolverLabel = "SYSTEM_RESOLVER"

// FetchTxt retrieves the proof TXT record for vc.DnsName. Each
// authoritative nameserver for vc.DnsZone is tried in turn and the
// first non-empty answer wins; per-server failures only get logged.
// When every authoritative server came up empty and the fallback is
// enabled, one query goes through the system resolver. Returns the
// cleaned TXT string and the name of the server that answered.
func FetchTxt(vc *VerifyConf, r Resolver) (string, string, error) {
	nss, err := AuthoritativeNameservers(vc.DnsZone, vc, r)
	if err != nil {
		return "", "", err
	}

	var lastErr error
	for _, ns := range nss {
		segs, err := r.QueryTXT(vc.DnsName, ns)
		if err != nil {
			lastErr = err
			if Globals.Verbose {
				log.Printf("FetchTxt: nameserver %s: %v", ns, err)
			}
			continue
		}
		txt := CleanTxt(strings.Join(segs, ""))
		if txt != "" {
			return txt, ns, nil
		}
	}

	if vc.AllowSystemResolver {
		segs, err := r.QueryTXT(vc.DnsName, "")
		if err != nil {
			lastErr = err
		} else {
			txt := CleanTxt(strings.Join(segs, ""))
			if txt != "" {
				return txt, SystemResolverLabel, nil
			}
		}
	}

	return "", "", fmt.Errorf("%w: no TXT returned for %s via authoritative NS (zone=%s), last error: %v",
		ErrNoTXTRecord, vc.DnsName, vc.DnsZone, lastErr)
}
