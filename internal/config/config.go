// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and environment variables.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// NATSURL points at the remote backend's NATS server.
	NATSURL string `koanf:"nats_url"`

	// SubjectPrefix prefixes all remote subjects (pushes, snapshot, writes).
	SubjectPrefix string `koanf:"subject_prefix"`

	// SnapshotTimeoutMS bounds a single snapshot request.
	SnapshotTimeoutMS int `koanf:"snapshot_timeout_ms"`

	// WriteTimeoutMS bounds a single remote write; expiry is a transport error.
	WriteTimeoutMS int `koanf:"write_timeout_ms"`

	// ResyncBackoffMinMS and ResyncBackoffMaxMS bound the snapshot retry backoff.
	ResyncBackoffMinMS int `koanf:"resync_backoff_min_ms"`
	ResyncBackoffMaxMS int `koanf:"resync_backoff_max_ms"`

	// WSSendBuffer sets the per-viewer outbound frame buffer; slow viewers
	// past this are dropped.
	WSSendBuffer int `koanf:"ws_send_buffer"`

	// TeamsGroupA and TeamsGroupB are the fixed tournament rosters, used to
	// seed zeroed standings when the backend has none.
	TeamsGroupA []string `koanf:"teams_group_a"`
	TeamsGroupB []string `koanf:"teams_group_b"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8090",
		NATSURL:            "nats://127.0.0.1:4222",
		SubjectPrefix:      "scoreboard",
		SnapshotTimeoutMS:  5_000,
		WriteTimeoutMS:     10_000,
		ResyncBackoffMinMS: 500,
		ResyncBackoffMaxMS: 30_000,
		WSSendBuffer:       16,
		TeamsGroupA:        []string{"Kanthapuram", "Marakkara", "Vaalal", "Puthankunnu"},
		TeamsGroupB:        []string{"Kizhisseri", "Kizhakkoth", "Kakkancheri"},
	}
}
