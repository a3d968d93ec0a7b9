// morphtool is a CLI utility for inspecting models and exercising the
// point cloud pipeline without a window.
package main

import (
	"fmt"
	"os"

	"github.com/Faultbox/pointmorph/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Fallback and retry warnings go to stderr; results go to stdout.
	if err := logger.Init(os.Getenv("MORPHTOOL_LOG"), ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "inspect", "info":
		cmdInspect(args)
	case "sample":
		cmdSample(args)
	case "simulate", "sim":
		cmdSimulate(args)
	case "synth":
		cmdSynth(args)
	case "init-config":
		cmdInitConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`morphtool - point cloud morph utility

Usage:
  morphtool <command> [options]

Commands:
  inspect <file.glb>          Show container and position accessor details
  sample <file.glb>           Normalize and resample a model into a point set
  simulate                    Load the configured models and run the morph cycle headless
  synth <dir>                 Write demo kingdom and museum models into dir
  init-config [path]          Write the default configuration

Set MORPHTOOL_LOG=debug for verbose logging.

Examples:
  morphtool inspect assets/kingdomcentre.glb
  morphtool sample -count 5000 -format yaml assets/museumoffuture.glb
  morphtool simulate -assets https://example.com/models -ticks 600
  morphtool synth assets`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
