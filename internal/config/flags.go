package config

import (
	"flag"
	"os"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   data directory
//	-l string   listen address for initiating sharing
//	-j string   ws:// URL of an initiator's channel to join
//	-n string   participant nick
//	-color string   participant display color
//	-log string     minimum log level
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("reflecta", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.ListenAddr, "l", cfg.ListenAddr, "listen address when initiating sharing")
	fs.StringVar(&cfg.JoinURL, "j", cfg.JoinURL, "channel URL to join as a participant")
	fs.StringVar(&cfg.Nick, "n", cfg.Nick, "participant nick")
	fs.StringVar(&cfg.Color, "color", cfg.Color, "participant display color")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "minimum log level")

	// config file flag is consumed by parseJSON; tolerate it here
	fs.String("c", "", "path to JSON config file")

	if err := fs.Parse(os.Args[1:]); err != nil {
		panic(err)
	}
}
