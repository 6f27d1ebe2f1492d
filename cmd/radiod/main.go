// Command radiod is the orchestration core described in spec.md: it
// loads a layered INI configuration, binds a front-end driver, and fans
// out into per-channel demodulator pipelines over multicast. Flag
// parsing follows the teacher's own stdlib flag usage (main.go).
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/openradiod/radiod/internal/radiod"
	"github.com/openradiod/radiod/internal/supervisor"
)

var version = "dev"

func main() {
	os.Exit(int(run()))
}

func run() supervisor.ExitCode {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	var (
		name         = fs.String("N", "", "instance name used in mDNS advertisements and MQTT topics")
		planTimeSecs = fs.Float64("p", 0, "FFT plan time limit in seconds (0 = no limit)")
		verboseCount int
		showVersion  = fs.Bool("V", false, "print version and exit")
	)
	fs.BoolFunc("v", "increase verbosity (repeatable)", func(string) error {
		verboseCount++
		return nil
	})
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-N name] [-p seconds] [-v]... [-V] <config-path>\n", os.Args[0])
		fs.PrintDefaults()
	}
	// ContinueOnError: an unknown flag must surface as EX_USAGE (spec.md
	// §6), not fs.Parse calling os.Exit(2) itself.
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return supervisor.ExitOK
		}
		return supervisor.ExitUsage
	}

	if *showVersion {
		fmt.Printf("radiod %s\n", version)
		return supervisor.ExitOK
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return supervisor.ExitUsage
	}
	configPath := fs.Arg(0)

	sys, code, err := radiod.Bring(radiod.Options{
		InstanceName:     *name,
		ConfigPath:       configPath,
		PlanTimeLimitSec: *planTimeSecs,
	})
	if err != nil {
		log.Printf("radiod: %v", err)
		return code
	}

	sup := supervisor.New(verboseCount)
	sup.StartCPUAccounting()

	exitCode := sup.Run()
	sys.Shutdown()
	return exitCode
}
