/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package poa

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type VerifyRequest struct {
	Cmd      string
	Target   string
	Response chan VerifyResponse
}

// RunTarget verifies a single named target and records the result in
// the shared registry. Errors never escape: a run that cannot produce a
// verdict is stored as a FAIL result with the error attached, so the
// API always has something to show.
func RunTarget(conf *Config, name string, vc *VerifyConf) *VerifyResult {
	v := NewVerifier(vc, conf.Internal.Resolver)
	res, err := v.Run()
	if err != nil {
		res = &VerifyResult{
			Time:          time.Now(),
			Verdict:       VerdictFail,
			ExportDir:     vc.ExportDir,
			LookbackFiles: vc.LookbackFiles,
			Error:         err.Error(),
		}
	}
	res.Target = name
	conf.Internal.Results.Set(name, res)
	return res
}

// VerifierEngine re-verifies all configured targets on a fixed
// interval. On-demand requests arrive via conf.Internal.VerifyQ and
// are answered on the request's response channel as well as recorded
// in the registry.
func VerifierEngine(ctx context.Context, conf *Config) error {
	verifyq := conf.Internal.VerifyQ
	interval := viper.GetInt("daemon.interval")
	if interval < 10 {
		interval = 10
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)

	runAll := func() {
		for name, vc := range conf.Internal.Targets {
			res := RunTarget(conf, name, vc)
			log.Printf("VerifierEngine: target %s: verdict %s (ns %s, skew %d)",
				name, res.Verdict, res.UsedNS, res.SkewSeconds)
		}
	}

	log.Printf("*** VerifierEngine: starting (interval %d seconds) ***", interval)
	defer ticker.Stop()

	runAll()

	for {
		select {
		case <-ctx.Done():
			log.Println("VerifierEngine: context cancelled")
			return nil
		case <-ticker.C:
			runAll()

		case vr, ok := <-verifyq:
			if !ok {
				log.Println("VerifierEngine: verifyq closed")
				return nil
			}
			target := vr.Target
			if target == "" {
				target = "default"
			}
			vc, exists := conf.Internal.Targets[target]
			if !exists {
				if vr.Response != nil {
					vr.Response <- VerifyResponse{
						Target:   target,
						Error:    true,
						ErrorMsg: fmt.Sprintf("unknown target: %s", target),
					}
				}
				continue
			}
			res := RunTarget(conf, target, vc)
			if vr.Response != nil {
				vr.Response <- VerifyResponse{
					Target: target,
					Result: res,
					Msg:    fmt.Sprintf("target %s verified: %s", target, res.Verdict),
				}
			}
		}
	}
}
