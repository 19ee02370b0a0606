package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/verifier/pkg/verifier"
)

func (cli *cli) parseFlags(args []string) {
	var help, ver, debug bool

	fs := flag.NewFlagSet("verifier", flag.ExitOnError)
	options := verifier.NewOptions()

	fs.StringVar(&cli.Options.Engine, "engine", options.Engine, "")
	fs.StringVar(&cli.Options.Engine, "e", options.Engine, "")
	fs.BoolVar(&cli.Options.Imprint, "imprint", options.Imprint, "")
	fs.BoolVar(&cli.Silence, "silence", false, "")
	fs.BoolVar(&cli.Silence, "s", false, "")
	fs.BoolVar(&debug, "debug", false, "")
	fs.BoolVar(&help, "help", false, "")
	fs.BoolVar(&help, "h", false, "")
	fs.BoolVar(&ver, "version", false, "")

	fs.Usage = func() {
		fmt.Print(usage)
	}

	fs.Parse(args)

	switch {
	case cli.Silence:
		log.SetLevel(log.FatalLevel)
	case debug:
		cli.SetDebug(true)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if help {
		fmt.Print(usage)
		os.Exit(exitOK)
	}

	if ver {
		fmt.Println("verifier", verifier.Version)
		os.Exit(exitOK)
	}

	if _, err := verifier.EngineByName(cli.Options.Engine); err != nil {
		log.Errorf("%v", err)
		fmt.Print(usage)
		os.Exit(exitFailure)
	}
}
