/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gookit/goutil/dump"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Tconfig struct {
	Targets map[string]TargetConf
}

// TargetConf is one entry in the targets file. Every field is
// optional, unset fields inherit from the verify section.
type TargetConf struct {
	DnsName             string   `yaml:"dns_name"`
	DnsZone             string   `yaml:"dns_zone"`
	ExportDir           string   `yaml:"export_dir"`
	FilePattern         string   `yaml:"file_pattern"`
	LookbackFiles       int      `yaml:"lookback_files"`
	WarnSkewSeconds     int      `yaml:"warn_skew_seconds"`
	FailSkewSeconds     int      `yaml:"fail_skew_seconds"`
	NsOverride          []string `yaml:"ns_override"`
	AllowSystemResolver *bool    `yaml:"allow_system_resolver"`
}

func setDefaults() {
	viper.SetDefault("service.name", "poa")
	viper.SetDefault("dns.transport", "do53")
	viper.SetDefault("dns.port", DefaultDnsPort)
	viper.SetDefault("dns.timeout", DefaultDnsTimeout)
	viper.SetDefault("dns.retries", DefaultDnsRetries)
	viper.SetDefault("verify.dns_name", DefaultDnsName)
	viper.SetDefault("verify.dns_zone", DefaultDnsZone)
	viper.SetDefault("verify.export_dir", DefaultExportDir)
	viper.SetDefault("verify.file_pattern", DefaultFilePattern)
	viper.SetDefault("verify.lookback_files", DefaultLookbackFiles)
	viper.SetDefault("verify.warn_skew_seconds", DefaultWarnSkewSeconds)
	viper.SetDefault("verify.fail_skew_seconds", DefaultFailSkewSeconds)
	viper.SetDefault("verify.env_file", DefaultEnvFile)
	viper.SetDefault("daemon.interval", 60)
	viper.SetDefault("daemon.targets_file", DefaultTargetsCfgFile)
}

func ParseConfig(conf *Config, reload bool) error {
	if Globals.Debug {
		log.Printf("Enter ParseConfig")
	}
	cfgfile := conf.Internal.CfgFile
	if cfgfile == "" {
		cfgfile = DefaultCfgFile
	}
	conf.Internal.CfgFile = cfgfile

	setDefaults()

	viper.SetConfigFile(cfgfile)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in. Running without one is
	// fine, the defaults plus poa.env cover the plain verifier case.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if errors.Is(err, os.ErrNotExist) {
		if Globals.Verbose {
			log.Printf("No config file %s, running on defaults", cfgfile)
		}
	} else {
		log.Fatalf("Could not load config %s: Error: %v", cfgfile, err)
	}

	envFile := viper.GetString("verify.env_file")
	envVals, err := LoadEnvFileValues(envFile)
	if err != nil {
		log.Printf("ParseConfig: error reading env file %s: %v", envFile, err)
	}
	ApplyEnvOverrides(nil, envVals, os.LookupEnv)

	err = viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		log.Fatalf("Error unmarshalling config into struct: %v", err)
	}

	conf.Verify.ExportDir = strings.TrimRight(conf.Verify.ExportDir, "/")

	if conf.Service.Debug != nil && *conf.Service.Debug {
		Globals.Debug = true
	}
	if conf.Service.Verbose != nil && *conf.Service.Verbose {
		Globals.Verbose = true
	}

	ValidateConfig(nil, cfgfile) // will terminate on error

	if Globals.Debug {
		dump.P(conf.Verify)
		log.Printf("ParseConfig: exit")
	}
	return nil
}

// LoadEnvFileValues reads a systemd-style KEY=VALUE environment file.
// Blank lines, comment lines and lines without "=" are skipped, later
// assignments win. A missing file just means no overrides.
func LoadEnvFileValues(path string) (map[string]string, error) {
	vals := make(map[string]string)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return vals, nil
		}
		return vals, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vals[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return vals, scanner.Err()
}

// ApplyEnvOverrides layers poa.env values and process environment
// variables over the config, with the precedence the deployment relies
// on: DNS_NAME comes from the env file only, DNS_ZONE from the process
// environment over the env file, the POA_* knobs from the process
// environment only. Pass v=nil to apply to the global viper; lookup is
// os.LookupEnv outside of tests.
func ApplyEnvOverrides(v *viper.Viper, env map[string]string, lookup func(string) (string, bool)) {
	set := func(key string, val interface{}) {
		if v == nil {
			viper.Set(key, val)
		} else {
			v.Set(key, val)
		}
	}

	if name, ok := env["DNS_NAME"]; ok && name != "" {
		set("verify.dns_name", name)
	}

	if zone, ok := lookup("DNS_ZONE"); ok && zone != "" {
		set("verify.dns_zone", zone)
	} else if zone, ok := env["DNS_ZONE"]; ok && zone != "" {
		set("verify.dns_zone", zone)
	}

	if dir, ok := lookup("POA_EXPORT_DIR"); ok && dir != "" {
		set("verify.export_dir", dir)
	}

	if override, ok := lookup("POA_DNS_NS_OVERRIDE"); ok && strings.TrimSpace(override) != "" {
		var nss []string
		for _, ns := range strings.Split(override, ",") {
			ns = strings.TrimSpace(ns)
			if ns != "" {
				nss = append(nss, ns)
			}
		}
		set("verify.ns_override", nss)
	}

	if allow, ok := lookup("POA_DNS_ALLOW_SYSTEM_RESOLVER"); ok {
		set("verify.allow_system_resolver", allow == "1")
	}
}

func ParseTargets(conf *Config, reload bool) ([]string, error) {
	if Globals.Debug {
		log.Printf("ParseTargets: enter")
	}
	var all_targets []string

	targetsfile := conf.Daemon.TargetsFile
	if targetsfile == "" {
		targetsfile = DefaultTargetsCfgFile
	}

	targets := make(map[string]*VerifyConf)

	base := conf.Verify
	targets["default"] = &base

	tcfgdata, err := os.ReadFile(targetsfile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		var tconf Tconfig

		// This kludge is to allow the targets to be a map[string]TargetConf,
		// with the target name as the key (which viper doesn't allow)
		if err := yaml.Unmarshal(tcfgdata, &tconf); err != nil {
			return nil, fmt.Errorf("error from yaml.Unmarshal(Tconfig): %v", err)
		}

		for name, tc := range tconf.Targets {
			vc := conf.Verify
			if tc.DnsName != "" {
				vc.DnsName = tc.DnsName
			}
			if tc.DnsZone != "" {
				vc.DnsZone = tc.DnsZone
			}
			if tc.ExportDir != "" {
				vc.ExportDir = strings.TrimRight(tc.ExportDir, "/")
			}
			if tc.FilePattern != "" {
				vc.FilePattern = tc.FilePattern
			}
			if tc.LookbackFiles > 0 {
				vc.LookbackFiles = tc.LookbackFiles
			}
			if tc.WarnSkewSeconds > 0 {
				vc.WarnSkewSeconds = tc.WarnSkewSeconds
			}
			if tc.FailSkewSeconds > 0 {
				vc.FailSkewSeconds = tc.FailSkewSeconds
			}
			if len(tc.NsOverride) > 0 {
				vc.NsOverride = tc.NsOverride
			}
			if tc.AllowSystemResolver != nil {
				vc.AllowSystemResolver = *tc.AllowSystemResolver
			}
			targets[name] = &vc
		}
	}

	conf.Internal.Targets = targets
	for name := range targets {
		all_targets = append(all_targets, name)
	}

	log.Printf("ParseTargets: %d targets: %v", len(all_targets), all_targets)
	return all_targets, nil
}
