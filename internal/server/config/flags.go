package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/phantomchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":12345")
//	-f string   credential file path
//	-d string   PostgreSQL DSN (empty keeps the file store)
//	-m int      failed authentication budget per connection
//	-t int      session read timeout, seconds (0 disables)
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The timeout flag is accepted as an integer in seconds and then converted
//     to a time.Duration value.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-f", "-d", "-m", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.UsersFile, "f", config.UsersFile, "credential file path")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.MaxAuthAttempts, "m", config.MaxAuthAttempts, "max failed authentication attempts")

	readTimeout := fs.Int("t", int(config.ReadTimeout.Seconds()), "session read timeout (in seconds)")

	err := fs.Parse(args)
	if err != nil {
		panic(err)
	}

	config.ReadTimeout = time.Duration(*readTimeout) * time.Second
}
