/*
 * Copyright (c) Johan Stenstam, johani@johani.org
 */
package main

import (
	"github.com/uptimeproof/poa/poa"
	"github.com/uptimeproof/poa/poa-verify/cmd"
)

func main() {
	poa.Globals.App.Name = appName
	poa.Globals.App.Version = appVersion
	poa.Globals.App.Date = appDate
	cmd.Execute()
}
