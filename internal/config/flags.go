package config

import "flag"

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-r string     Redis address (host:port)
//	-w duration   lockout window (e.g., "300s")
//	-n int        lockout failure threshold
//	-l string     log level (debug, info, warn, error)
//
// Secrets are intentionally absent; set them via environment.
func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("accountd", flag.ContinueOnError)

	fs.StringVar(&c.ListenAddr, "a", c.ListenAddr, "address and port to run server")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.RedisAddr, "r", c.RedisAddr, "redis address")
	lockoutWindow := fs.Duration("w", c.LockoutWindow, "sign-in failure window")
	fs.IntVar(&c.LockoutThreshold, "n", c.LockoutThreshold, "sign-in failure threshold")
	fs.StringVar(&c.LogLevel, "l", c.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	c.LockoutWindow = *lockoutWindow
	return nil
}
