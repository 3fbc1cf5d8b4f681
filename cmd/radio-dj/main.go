// Command radio-dj builds mood-clustered DJ sets and artwork color themes.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/justestif/go-spotify-radio-dj/internal/cli"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	// fang prints the error itself.
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	return fang.Execute(context.Background(), cli.NewRootCmd(version))
}
