// Package workflow drives an ingest through its phases.
//
// The Controller owns the phase state machine (inputs, parse, choose options
// for image ingests, execute), every backend job id, and the poll slots that
// observe those jobs. Each transition that creates a job starts a watch in a
// named slot; watch notifications re-enter the controller under its lock and
// are dropped when the slot generation has moved on, so a superseded poll
// never mutates a phase that was left.
//
// The derived view (View) is recomputed from state on every call: rename
// output, synthesized name errors, ignored warnings, the issue filter,
// bucket summaries and dark image status.
//
// Collaborators are injected: the job service (jobapi.Backend), a folder
// Picker, a SettingsReader for picker defaults, a gate.Confirmer for output
// collisions, and the poll clock.
package workflow
