// Package audit records every resolved authorization decision as an
// append-only access log for compliance review.
//
// The resolver emits one Entry per check through the Sink interface. Sinks
// are composable:
//
//   - DBSink persists entries to PostgreSQL for querying via Store.
//   - FileSink appends NDJSON lines to a rotating file, typically as the
//     fallback channel.
//   - MultiSink fans out to several sinks.
//   - AsyncSink wraps any of the above with a bounded queue so appends never
//     block the check path; overflow drops the oldest entry or blocks with a
//     timeout, per configuration.
//
// Entries are immutable once written. Retention is applied by
// RetentionRunner on a cron schedule (optionally archiving expired batches
// to S3 first) or left to an external batch job.
//
// Wiring on the check path:
//
//	dbSink, err := audit.NewDBSink(db)
//	if err != nil { ... }
//	sink := audit.NewAsyncSink(dbSink, audit.DefaultAsyncConfig(), logger, metrics)
//	defer sink.Close()
package audit
