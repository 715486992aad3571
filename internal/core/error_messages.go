package core

// error_messages.go maps technical errors to operator-facing messages with
// codes for support reference. The CLI prints them on failure and the HTTP
// API returns them in error bodies.
//
// Codes are grouped by category:
//
//	CFG001 - Configuration error: rule set or options are missing or malformed
//	CFG002 - Database not configured: no connection URL was provided
//
//	VAL001 - Missing column: required column is missing from the input
//	VAL002 - Content violations: blocking validation found defects
//
//	DB001 - Connection refused
//	DB002 - Connection reset
//	DB003 - Timeout
//	DB004 - Deadlock
//	DB005 - Constraint violation
//	DB006 - Migration failed
//	DB000 - Any other storage failure
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Encoding error
//	FILE004 - No such file
//	FILE005 - Empty file
//
//	RUN001 - Report already written for this run id
//	RUN002 - Record value cannot be serialized
//	RUN003 - Requested version or run not found
//	RUN004 - Run cancelled
//	RUN005 - Run deadline exceeded
//
//	ERR000 - Unexpected error (check logs for the technical error)
//
// Patterns are matched case-insensitively with strings.Contains. The first
// matching pattern wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Configuration (CFG)
	// =========================================================================
	{
		pattern: "database url is required",
		msg: UserMessage{
			Message: "No database connection configured",
			Action:  "Set DATABASE_URL or database.url in the pipeline config",
			Code:    "CFG002",
		},
	},
	{
		pattern: "configuration error",
		msg: UserMessage{
			Message: "Rule set or pipeline options are invalid",
			Action:  "Fix the listed configuration problems and rerun",
			Code:    "CFG001",
		},
	},
	{
		pattern: "invalid configuration",
		msg: UserMessage{
			Message: "Rule set or pipeline options are invalid",
			Action:  "Fix the listed configuration problems and rerun",
			Code:    "CFG001",
		},
	},

	// =========================================================================
	// Validation verdict (VAL)
	// =========================================================================
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from the input",
			Action:  "Check the validation report and add the missing columns",
			Code:    "VAL001",
		},
	},
	{
		pattern: "content validation failed",
		msg: UserMessage{
			Message: "Input failed blocking validation",
			Action:  "Review the validation report, fix every listed defect, then rerun",
			Code:    "VAL002",
		},
	},

	// =========================================================================
	// Database (DB)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check that the database is running and try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Rerun the pipeline; every stage is safe to repeat",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Database operation timed out",
			Action:  "Rerun the pipeline; every stage is safe to repeat",
			Code:    "DB003",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Avoid concurrent runs for the same version and rerun",
			Code:    "DB004",
		},
	},
	{
		pattern: "violates",
		msg: UserMessage{
			Message: "A database constraint rejected the write",
			Action:  "Check the staged data against the schema and rerun",
			Code:    "DB005",
		},
	},
	{
		pattern: "migrat",
		msg: UserMessage{
			Message: "Schema migration failed",
			Action:  "Inspect the migration version and fix the schema state",
			Code:    "DB006",
		},
	},
	{
		pattern: "storage error",
		msg: UserMessage{
			Message: "A pipeline write failed",
			Action:  "Rerun the pipeline; every stage is safe to repeat",
			Code:    "DB000",
		},
	},

	// =========================================================================
	// Input file (FILE)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Input file exceeds the maximum size",
			Action:  "Split the file into smaller batches",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "Input is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a unique header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "Input contains invalid characters",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Input file was not found",
			Action:  "Check the configured input path",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "Input file is empty",
			Action:  "Provide a CSV file with a header row",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Run (RUN)
	// =========================================================================
	{
		pattern: "report already exists",
		msg: UserMessage{
			Message: "A validation report for this run already exists",
			Action:  "Reports are immutable; start a new run",
			Code:    "RUN001",
		},
	},
	{
		pattern: "serialization error",
		msg: UserMessage{
			Message: "A record value could not be serialized",
			Action:  "Remove infinite numeric values from the input",
			Code:    "RUN002",
		},
	},
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "Requested item was not found",
			Action:  "Verify the run id or feature version",
			Code:    "RUN003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Run was cancelled",
			Action:  "Rerun the pipeline when ready",
			Code:    "RUN004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Run exceeded its deadline",
			Action:  "Rerun with a smaller batch",
			Code:    "RUN005",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
