// Package notifications delivers job-completion and job-failure events to
// an ntfy topic, degrading to a no-op Service when none is configured.
//
// The pipeline package depends only on the minimal subset of Service it
// needs (see pipeline.Notifier); this package's fuller Service interface
// adds the operational events (cache GC, a manual test ping) that the CLI
// and background reaper also want to surface.
package notifications
