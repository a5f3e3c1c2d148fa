// Package core holds the back-office logic shared by the HTTP server and
// the qbimport CLI. It has no HTTP dependencies.
//
// # Import sessions
//
// A bulk import is a session driven by [Service]:
//
//  1. [Service.Preview] parses and validates a CSV and opens a session.
//     Nothing is written.
//  2. [Service.Confirm] is the confirmation gate. It takes an import slot
//     from the [ImportLimiter] and starts the batch in the background.
//  3. [Service.Subscribe] streams [ImportProgress]; [Service.Result] waits
//     for the final [ImportResult].
//
// Rows are created one at a time. A failed row is counted and the batch
// continues; rows created before a failure or a cancel are kept.
//
// # Catalog edits
//
// [Catalog] validates and applies single-entity edits (questions, topics,
// tags, quizzes, reports, user roles). Each edit is audited and drops the
// cached dashboard when it changes the numbers.
//
// # Errors
//
// [MapError] turns technical errors into a [UserMessage] with a support
// code:
//
//   - DB001-DB009: database constraints and connectivity
//   - VAL001: question form validation
//   - FILE001-FILE007: CSV file handling
//   - IMP001-IMP007: import sessions
//   - AUTH001-AUTH002: authentication and permissions
//
// # Audit log
//
// Imports, deletions, publishing, role changes and report decisions are
// written to the audit log with a severity. [ArchiveScheduler] moves old
// entries to the archive table and purges archived entries past retention.
package core
