/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import "time"

const (
	DefaultCfgFile        = "/etc/poa/poa-verify.yaml"
	DefaultPoadCfgFile    = "/etc/poa/poad.yaml"
	DefaultTargetsCfgFile = "/etc/poa/targets.yaml"

	DefaultEnvFile = "/opt/uptimeproof/infra/poa.env"

	DefaultDnsName   = "_poa.uptimeproof.io"
	DefaultDnsZone   = "uptimeproof.io"
	DefaultExportDir = "/proof/exports"

	DefaultFilePattern     = "heartbeats_*.json"
	DefaultLookbackFiles   = 300
	DefaultWarnSkewSeconds = 600
	DefaultFailSkewSeconds = 3600

	DefaultDnsPort    = "53"
	DefaultDnsTimeout = 2 * time.Second
	DefaultDnsRetries = 1

	// HashChunkSize is the read buffer size used when digesting evidence files.
	HashChunkSize = 1024 * 1024
)
