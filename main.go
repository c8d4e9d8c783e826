package main

import (
	"github.com/creativeprojects/imapfetch/cmd"
)

// These fields are populated by the goreleaser build
var (
	version = "0.1.0-dev"
	commit  = ""
	date    = ""
	builtBy = ""
)

func main() {
	cmd.SetVersion(version, commit, date, builtBy)
	cmd.Execute()
}
