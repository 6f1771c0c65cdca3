/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package poa

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func MainLoop(conf *Config) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	hupper := make(chan os.Signal, 1)
	signal.Notify(hupper, syscall.SIGHUP)

	defer signal.Stop(exit)
	defer signal.Stop(hupper)

	var err error
	var all_targets []string
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for {
			select {
			case <-exit:
				log.Println("mainloop: Exit signal received. Cleaning up.")
				return
			case <-hupper:
				log.Println("mainloop: SIGHUP received. Reloading config and targets.")
				_, err = conf.ReloadConfig()
				if err != nil {
					log.Printf("Error reloading config: %v", err)
					return // terminate MainLoop --> shutdown
				}
				all_targets, err = ParseTargets(conf, true) // true = reload
				if err != nil {
					log.Printf("Error parsing targets: %v", err)
					return
				}
				log.Printf("mainloop: SIGHUP received. Now watching %d targets: %v",
					len(all_targets), all_targets)

			case <-conf.Internal.APIStopCh:
				log.Println("mainloop: Stop command received. Cleaning up.")
				return
			}
		}
	}()
	wg.Wait()

	fmt.Println("mainloop: leaving signal dispatcher")
}

func (conf *Config) MainInit(defaultcfg string) error {
	Globals.App.ServerBootTime = time.Now()
	conf.ServerConfigTime = time.Now()

	pflag.StringVar(&conf.Internal.CfgFile, "config", defaultcfg, "config file path")
	pflag.BoolVarP(&Globals.Debug, "debug", "", false, "run in debug mode")
	pflag.BoolVarP(&Globals.Verbose, "verbose", "v", false, "Verbose mode")
	pflag.Parse()

	fmt.Printf("*** %s starting (verbose: %t, debug: %t)\n",
		Globals.App.Name, Globals.Verbose, Globals.Debug)

	err := ParseConfig(conf, false) // false = !reload, initial config
	if err != nil {
		return fmt.Errorf("error parsing config %q: %v", conf.Internal.CfgFile, err)
	}

	logfile := viper.GetString("log.file")
	err = SetupLogging(logfile)
	if err != nil {
		return fmt.Errorf("error setting up logging: %v", err)
	}
	fmt.Printf("Logging to file: %s\n", logfile)

	fmt.Printf("%s version %s starting.\n", Globals.App.Name, Globals.App.Version)

	conf.Internal.Results = cmap.New[*VerifyResult]()
	conf.Internal.VerifyQ = make(chan VerifyRequest, 10)
	conf.Internal.APIStopCh = make(chan struct{})

	resolver, err := NewLiveResolver(&conf.Dns)
	if err != nil {
		return fmt.Errorf("error setting up resolver: %v", err)
	}
	conf.Internal.Resolver = resolver

	all_targets, err := ParseTargets(conf, false) // false = initial load, not reload
	if err != nil {
		return fmt.Errorf("error parsing targets: %v", err)
	}
	log.Printf("%s: watching %d targets: %v", Globals.App.Name, len(all_targets), all_targets)

	return nil
}

func Shutdowner(conf *Config, msg string) {
	log.Printf("%s: shutting down: %s", Globals.App.Name, msg)
	if conf.Internal.APIStopCh != nil {
		conf.Internal.StopOnce.Do(func() {
			close(conf.Internal.APIStopCh)
		})
	}
	time.Sleep(2 * time.Second)
	os.Exit(0)
}
