package main

import (
	"fmt"
	"os"

	app "github.com/valter-silva-au/mustdo/internal"
	"github.com/valter-silva-au/mustdo/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	basePath := app.ResolveBasePath()

	a, err := app.NewApp(basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing mustdo: %v\n", err)
		os.Exit(1)
	}
	for _, w := range a.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	err = cli.Execute()
	_ = a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
