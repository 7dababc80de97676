// Package service implements the gridmark operations on top of the model
// repository and the shared definition file.
//
// # Services
//
// ProjectService imports project snapshots and lists categories and
// elements.
//
// NumberingService runs a numbering pass: it ensures the "Grid Square" and
// "Number" fields exist and are bound to the batch's categories, then walks
// the batch in order writing each element's ordinal and grid label. The
// whole pass runs in one "Number Elements" transaction.
//
// FieldService reports shared definitions with their bindings.
//
// # Event System
//
// Services publish events via EventBus (import, run start, progress, field
// binding, run finish). Slow subscribers miss events rather than block a run.
package service
