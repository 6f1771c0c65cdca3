/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/uptimeproof/poa/poa"
)

func main() {
	var conf poa.Config

	poa.Globals.App.Name = appName
	poa.Globals.App.Version = appVersion
	poa.Globals.App.Date = appDate

	err := conf.MainInit(poa.DefaultPoadCfgFile)
	if err != nil {
		poa.Shutdowner(&conf, fmt.Sprintf("Error initializing %s: %v", appName, err))
	}

	apirouter, err := poa.SetupAPIRouter(&conf)
	if err != nil {
		poa.Shutdowner(&conf, fmt.Sprintf("Error setting up API router: %v", err))
	}

	err = poa.APIdispatcher(&conf, apirouter, conf.Internal.APIStopCh)
	if err != nil {
		poa.Shutdowner(&conf, fmt.Sprintf("Error starting API dispatcher: %v", err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		if err := poa.VerifierEngine(ctx, &conf); err != nil {
			log.Printf("VerifierEngine: %v", err)
		}
	}()

	poa.MainLoop(&conf)
}
