// Package scheduling holds the appointment rules shared by every write path: end time
// derivation, the edge-exclusive overlap check per instructor and per student, the closed
// status enum with its predicates, and the rebooking primitive.
//
// Everything here is a pure function of its arguments. The overlap check only sees the
// active set it is handed, so it cannot stop two concurrent writers from both passing.
// Callers must hold a lock per scope key (see ScopeKeys) from reading the active set until
// the write commits. The repository layer does this with PostgreSQL advisory locks.
package scheduling
