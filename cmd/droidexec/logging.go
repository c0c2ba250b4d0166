package main

import (
	"os"

	"github.com/mylxsw/asteria/level"
	"github.com/mylxsw/asteria/log"
	"github.com/mylxsw/asteria/writer"
)

// setupLogging sends all log output to stderr; stdout carries the MCP
// channel or the run output.
func setupLogging(verbose bool) {
	log.DefaultLogWriter(writer.NewStreamWriter(os.Stderr))
	if verbose {
		log.DefaultLogLevel(level.Debug)
		return
	}
	log.DefaultLogLevel(level.Info)
}
