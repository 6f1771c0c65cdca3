/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package poa

import "time"

type AppDetails struct {
	Name           string
	Version        string
	Date           string
	ServerBootTime time.Time
}

type GlobalStuff struct {
	Verbose bool
	Debug   bool
	App     AppDetails
}

var Globals = GlobalStuff{
	Verbose: false,
	Debug:   false,
}
