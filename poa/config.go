/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/spf13/viper"
)

type Config struct {
	App              AppDetails
	ServerConfigTime time.Time
	Service          ServiceConf
	Dns              DnsConf
	Verify           VerifyConf
	Daemon           DaemonConf
	Apiserver        ApiserverConf
	Log              LogConf
	Internal         InternalConf
}

type ServiceConf struct {
	Name    string `validate:"required"`
	Debug   *bool
	Verbose *bool
}

type LogConf struct {
	File string
}

type DnsConf struct {
	Transport string `validate:"required"`
	Port      string
	Timeout   time.Duration
	Retries   int
}

// VerifyConf holds everything one verification run needs. In the
// daemon each target is a VerifyConf of its own, derived from this one.
type VerifyConf struct {
	DnsName             string   `mapstructure:"dns_name" validate:"required"`
	DnsZone             string   `mapstructure:"dns_zone" validate:"required"`
	ExportDir           string   `mapstructure:"export_dir" validate:"required"`
	FilePattern         string   `mapstructure:"file_pattern"`
	LookbackFiles       int      `mapstructure:"lookback_files"`
	WarnSkewSeconds     int      `mapstructure:"warn_skew_seconds"`
	FailSkewSeconds     int      `mapstructure:"fail_skew_seconds"`
	NsOverride          []string `mapstructure:"ns_override"`
	AllowSystemResolver bool     `mapstructure:"allow_system_resolver"`
	EnvFile             string   `mapstructure:"env_file"`
}

type DaemonConf struct {
	Interval    int
	TargetsFile string `mapstructure:"targets_file"`
}

type ApiserverConf struct {
	Addresses []string
	ApiKey    string `mapstructure:"api_key"`
	CertFile  string `mapstructure:"cert_file"`
	KeyFile   string `mapstructure:"key_file"`
}

type InternalConf struct {
	CfgFile   string
	Resolver  Resolver
	Results   cmap.ConcurrentMap[string, *VerifyResult]
	VerifyQ   chan VerifyRequest
	APIStopCh chan struct{}
	StopOnce  sync.Once
	Targets   map[string]*VerifyConf
}

func ValidateConfig(v *viper.Viper, cfgfile string) error {
	var config Config

	if v == nil {
		if err := viper.Unmarshal(&config); err != nil {
			log.Fatalf("ValidateConfig: Unmarshal error: %v", err)
		}
	} else {
		if err := v.Unmarshal(&config); err != nil {
			log.Fatalf("ValidateConfig: Unmarshal error: %v", err)
		}
	}

	var configsections = make(map[string]interface{}, 5)

	configsections["service"] = config.Service
	configsections["dns"] = config.Dns
	configsections["verify"] = config.Verify

	if err := ValidateBySection(&config, configsections, cfgfile); err != nil {
		log.Fatalf("Config \"%s\" is missing required attributes:\n%v\n", cfgfile, err)
	}
	return nil
}

func ValidateBySection(config *Config, configsections map[string]interface{}, cfgfile string) error {
	validate := validator.New()

	for k, data := range configsections {
		if Globals.Debug {
			log.Printf("%s: Validating config for %s section\n", strings.ToUpper(config.Service.Name), k)
		}
		if err := validate.Struct(data); err != nil {
			log.Fatalf("%s: Config %s, section %s: missing required attributes:\n%v\n",
				strings.ToUpper(config.Service.Name), cfgfile, k, err)
		}
	}
	return nil
}

func (conf *Config) ReloadConfig() (string, error) {
	err := ParseConfig(conf, true) // true: reload, not initial parsing
	if err != nil {
		log.Printf("Error parsing config: %v", err)
	}
	conf.ServerConfigTime = time.Now()
	return "Config reloaded.", err
}
