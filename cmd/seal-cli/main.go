package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// Version is set at build time
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	cli := &CLI{
		BaseURL: getEnv("SEAL_URL", "http://localhost:8080"),
		Token:   os.Getenv("SEAL_TOKEN"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}

	var err error
	switch cmd {
	case "tuple", "tuples":
		err = cli.tupleCommand(args)
	case "namespace", "namespaces", "ns":
		err = cli.namespaceCommand(args)
	case "check":
		err = cli.checkCommand(args)
	case "audit":
		err = cli.auditCommand(args)
	case "health":
		err = cli.healthCommand(args)
	case "version":
		fmt.Printf("seal-cli %s\n", Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`seal-cli - Seal Permission Service Command Line Interface

Usage:
  seal-cli <command> [subcommand] [options]

Environment Variables:
  SEAL_URL    Base URL of Seal server (default: http://localhost:8080)
  SEAL_TOKEN  Admin authentication token

Commands:
  tuple     Manage relation tuples
    list    [--namespace=NS] [--object=ID] [--relation=REL]
    create  <subject> <relation> <object>   e.g. user:alice viewer document:readme
    delete  <subject> <relation> <object>
    reverse <subject>                       Tuples held by a subject

  namespace Manage rule definitions
    show                Show the active rule version
    load    <file>      Load rule source from file ("-" for stdin)
    versions            List persisted rule versions
    activate <version>  Roll back/forward to a stored version

  check     Evaluate a permission
    <subject> <permission> <object>         e.g. user:patrik view file:readme

  audit     Query decision/audit events
    query   [--type=TYPE] [--subject=SUBJECT] [--status=STATUS]

  health    Check server health
    live    Liveness check
    ready   Readiness check
    full    Full health report

  version   Show CLI version
  help      Show this help
`)
}
