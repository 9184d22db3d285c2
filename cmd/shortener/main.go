// shortener is the command-line interface for the event-sourced short-link
// service.
//
// Usage:
//
//	shortener <command> [flags]
//
// Commands:
//
//	demo        Run the walkthrough scenarios against a fresh service
//	shell       Start a line-oriented session against an in-memory service
//	config      Inspect and create configuration files
//	version     Show version information
//
// Examples:
//
//	# Run the scenarios with random slugs and metrics
//	shortener demo --slug-generator random --metrics
//
//	# Pipe commands into a session
//	printf 'create https://go.dev go\nredirect go\nstats go\n' | shortener shell --no-prompt
//
//	# Write a config file
//	shortener config init
package main

import (
	"os"

	"github.com/vsavik/url-shortener/cli/commands"
)

// Build information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.BuildDate = buildDate

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
