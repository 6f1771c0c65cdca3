/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"fmt"
	"strings"
)

// RenderReport formats a verification result as the fixed-width text
// report consumers already parse. The layout is load-bearing, change
// nothing without checking downstream scrapers.
func RenderReport(res *VerifyResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "VERDICT: %s\n", res.Verdict)
	fmt.Fprintf(&b, "DNS NS      : %s\n", res.UsedNS)
	fmt.Fprintf(&b, "DNS TXT     : %s\n", res.RawTxt)
	fmt.Fprintf(&b, "EXPORT_DIR  : %s\n", res.ExportDir)

	if res.NoMatch {
		fmt.Fprintf(&b, "LOCAL       : FAIL (no matching export found in last %d files)\n",
			res.LookbackFiles)
		return b.String()
	}

	fmt.Fprintf(&b, "Matched file: %s (%s)\n", res.MatchPath, res.MatchMethod)
	fmt.Fprintf(&b, "DNS SHA256  : %s\n", res.DnsSha256)
	fmt.Fprintf(&b, "File SHA256 : %s\n", res.FileSha256)
	fmt.Fprintf(&b, "Skew seconds: %d (file_mtime - dns_ts)\n", res.SkewSeconds)
	fmt.Fprintf(&b, "LOCAL: %s\n", res.Verdict)

	return b.String()
}

// RenderFailure formats an error that prevented any verdict from being
// reached. Exit code for this shape is always 2.
func RenderFailure(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "VERDICT: FAIL\n")
	fmt.Fprintf(&b, "ERROR       : %v\n", err)
	return b.String()
}
