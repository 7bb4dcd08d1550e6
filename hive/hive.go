// Package hive holds application-wide defaults shared by the config layer
// and the binaries.
package hive

const (
	// DefaultAppName is the canonical name used for config lookup paths.
	DefaultAppName = "hivecore"

	// DefaultConfigPath is the fallback directory searched for config files.
	DefaultConfigPath = "/etc/hivecore"

	// DefaultDatabasePath is where the embedded database lives when no
	// path is configured.
	DefaultDatabasePath = "data/hivecore.db"

	// DefaultScheduleName is the well-known schedule assigned to devices
	// that have none of their own.
	DefaultScheduleName = "default"

	// SoftwareVersion tags outbound module info and synthesis requests so
	// devices can distinguish this service from the retired cloud.
	SoftwareVersion = "hivecore_v1"

	// FallbackLine is spoken whenever a reply-producing request cannot be
	// routed to any handler. The double space is deliberate: devices have
	// the exact string cached and deduplicate repeated utterances by it.
	FallbackLine = "I'm sorry. Can  you repeat that?"

	// DefaultWorkerCount bounds concurrent reply generation.
	DefaultWorkerCount = 5
)
