// Package main is the entry point for the catrace backend.
//
//	@title			Catrace API
//	@version		1.0
//	@description	Player login, cat profiles and race signups.
//	@BasePath		/
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
