// Package asp holds the shared application constants for aspcache.
package asp

const (
	// DefaultAppName is used for config discovery and default data paths.
	DefaultAppName = "aspcache"

	// DefaultConfigPath is the fallback directory searched for config files.
	DefaultConfigPath = "$HOME/.config/aspcache"

	// DefaultDataDir is where embedded databases are created by default.
	DefaultDataDir = "./data"

	// DefaultJournalPath is the default embedded database file for the
	// solve journal.
	DefaultJournalPath = "./data/aspcache.db"
)
