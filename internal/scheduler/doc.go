// Package scheduler runs background tasks through named priority queues.
//
// Each Queue has exactly one Worker. Submissions land in the queue's bounded
// inbox; the worker admits them into a heap ordered by priority, then
// creation time, then admission order, and executes one task at a time.
// Every task is persisted through a RecordStore as it moves forward through
// Pending, Running and a terminal Completed or Failed status. On startup a
// worker fails records a previous process left Running and re-admits Pending
// records whose names are known to its Registry.
package scheduler
