// Package core provides the business logic for the order feature pipeline.
//
// This package has no transport dependencies. It is driven by the CLI,
// the HTTP API and tests without modification.
//
// # Architecture
//
// A run moves one in-memory [Batch] through fixed stages, each committing on
// its own:
//
//  1. Raw capture: every record is appended to the raw log with its
//     canonical JSON payload ([RawLog]).
//  2. Validation: required columns first, then content checks, producing a
//     [ValidationReport] written once per run id ([ReportStore]).
//  3. Staging: records are cleaned and upserted by order id, last write
//     wins ([Merger]).
//  4. Features: a [FeatureSource] computes per-customer rows which are
//     stamped with the run's feature version.
//  5. Lineage: the version is bound to code and source hashes, first write
//     wins ([Registry]).
//  6. Splits: rows are ordered by snapshot time and cut into train, val and
//     test ([Splitter]).
//
// [Service.Run] wires the stages together. Persistence goes through the
// [Store] interface; [PostgresStore] is the production implementation.
//
// # Dataset Registry
//
// Input shapes are registered at init time using [Register]. Each
// [DatasetDefinition] maps the columns that carry the order attributes:
//
//	core.Register(core.DatasetDefinition{
//	    Info: core.DatasetInfo{Key: "orders", Label: "Orders"},
//	    Fields: core.FieldMap{
//	        ID: "order_id", Owner: "customer_id",
//	        Timestamp: "order_ts", Amount: "amount", Status: "status",
//	    },
//	})
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - CFG001-CFG002: Configuration and rule set errors
//   - VAL001-VAL002: Structural and content validation failures
//   - DB000-DB006: Database errors (connections, constraints, timeouts)
//   - FILE001-FILE005: Input file errors (size, encoding, format)
//   - RUN001-RUN005: Run errors (reports, lookups, cancellation)
package core
