// Package diag defines the diagnostic model shared by the placement phase and
// the driver.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for findings produced while
//     partitioning a whole program into server and client halves.
//   - Offer light-weight utilities (Reporter, Bag) that let the partition
//     components emit diagnostics without coupling to storage or rendering.
//
// # Scope
//
// Package diag does not format or print anything. Rendering lives in
// internal/diagfmt; the decision whether emission may proceed lives in the
// driver, which consults Bag.HasErrors.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning, Error (severity.go).
//   - Code – compact numeric identifier with a stable string form (codes.go).
//   - Message – short, actionable text.
//   - Primary – the source.Span of the offending declaration or reference.
//   - Notes – secondary spans, e.g. each step of a reaching path.
//
// Every fatal placement problem of a program is collected into one Bag rather
// than stopping at the first: fixing one misclassification often changes the
// closure and surfaces or resolves others.
package diag
