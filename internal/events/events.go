// Package events defines the reporting hooks the vault fires for
// observers. Consumers inject a Reporter; the vault never blocks on it.
package events

// Event is a marker for anything the vault reports.
type Event interface {
	Name() string
}

// SecretMigrated is fired when a keystore read found a secret under an
// older generation and wrote it through to the current one.
type SecretMigrated struct {
	Generation string
	Secret     string
}

func (SecretMigrated) Name() string { return "secret_migrated" }

// DatabaseRelocated is fired after the vault file has been moved from its
// app-private location to the shared location.
type DatabaseRelocated struct {
	From string
	To   string
}

func (DatabaseRelocated) Name() string { return "database_relocated" }

// RelocationFailed is fired when the one-shot file move failed and the
// vault kept using the original location.
type RelocationFailed struct {
	From string
	To   string
	Err  error
}

func (RelocationFailed) Name() string { return "database_relocation_failed" }

// CleanupFailed is fired when a tombstone cleanup pass gave up, either
// after exhausting its retry budget or on a non-transient error.
type CleanupFailed struct {
	Err      error
	Attempts int
}

func (CleanupFailed) Name() string { return "tombstone_cleanup_failed" }

// CleanupSkipped is fired when a scheduled cleanup pass was aborted,
// for example because a sync was in progress.
type CleanupSkipped struct {
	Reason string
}

func (CleanupSkipped) Name() string { return "tombstone_cleanup_skipped" }

// Reporter receives vault events. Implementations must be safe for
// concurrent use and must not block.
type Reporter interface {
	Report(e Event)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Report(Event) {}
