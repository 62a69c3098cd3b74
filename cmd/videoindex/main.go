// Command videoindex is a perceptual video-fingerprint index: it scans
// directories of video files, extracts a thinned sequence of keyframe
// hashes from each, and finds the closest indexed frames to a query image.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"videoindex/internal/cliapp"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&cliapp.IndexCommand{}, "")
	subcommands.Register(&cliapp.SearchCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
