/*
 * Copyright (c) Johan Stenstam, johani@johani.org
 */
package main

const (
	appName    = "poad"
	appVersion = "v0.3.1"
	appDate    = "2024-12-09"
)
