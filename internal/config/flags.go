package config

import (
	"flag"
	"os"
	"time"

	"github.com/recallhq/recall/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-l string   path of the local database
//	-r string   DSN of the managed remote store
//	-i int      online check interval in seconds
//	-w int      transition wait in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-l", "-r", "-i", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.LocalDSN, "l", cfg.LocalDSN, "path of the local database")
	fs.StringVar(&cfg.RemoteDSN, "r", cfg.RemoteDSN, "DSN of the managed remote store")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	transitionWait := fs.Int("w", int(cfg.TransitionWait.Seconds()), "transition wait (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.TransitionWait = time.Duration(*transitionWait) * time.Second
}
