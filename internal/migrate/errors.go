package migrate

// # Error Codes Reference
//
// Every failure the migration can meet falls into one kind. Row-level kinds
// are folded into Stats and never stop a run; only preconditions do.
//
//	MIG001 - Missing insert header: the export holds no INSERT for the table
//	         Action: Export data (not structure only) for this table
//
//	MIG002 - Row arity mismatch: a tuple has the wrong number of fields
//	         Action: None; the row is dropped and counted
//
//	MIG003 - Duplicate: a row with this legacy id already exists
//	         Action: None; the row is skipped and counted
//
//	MIG004 - Persistence error: the target store rejected the row
//	         Action: Check the log line carrying the source id
//
//	MIG005 - Precondition missing: an export is unreadable or a
//	         reference row is absent
//	         Action: Fix the input or seed the target, then rerun
//
//	ERR000 - Unknown error

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/crmmigrate/internal/dump"
	"github.com/JonMunkholm/crmmigrate/internal/store"
)

// ErrPreconditionMissing marks failures detected before anything is wiped.
var ErrPreconditionMissing = errors.New("precondition missing")

// PreconditionError names the missing precondition.
type PreconditionError struct {
	What string
	Err  error
}

func (e *PreconditionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrPreconditionMissing, e.What)
	}
	return fmt.Sprintf("%s: %s: %v", ErrPreconditionMissing, e.What, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Is makes every PreconditionError match ErrPreconditionMissing.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionMissing
}

func precondition(what string, err error) error {
	return &PreconditionError{What: what, Err: err}
}

// Kind is the error taxonomy of a migration.
type Kind int

const (
	KindNone Kind = iota
	KindMalformedHeader
	KindRowArity
	KindConflict
	KindPersistence
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMalformedHeader:
		return "malformed_dump_header"
	case KindRowArity:
		return "row_arity_mismatch"
	case KindConflict:
		return "persistence_conflict"
	case KindPersistence:
		return "persistence_other"
	case KindPrecondition:
		return "precondition_missing"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Fatal reports whether errors of this kind stop a run.
func (k Kind) Fatal() bool {
	return k == KindPrecondition
}

// Classify maps err onto the taxonomy. Errors the migration does not
// recognize are persistence errors: the store is the only other party.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrPreconditionMissing), errors.Is(err, dump.ErrFileTooLarge):
		return KindPrecondition
	case errors.Is(err, dump.ErrNoInsertHeader):
		return KindMalformedHeader
	case errors.Is(err, dump.ErrRowArity):
		return KindRowArity
	case store.IsConflict(err):
		return KindConflict
	default:
		return KindPersistence
	}
}

// UserMessage provides operator-facing error information.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Code for support reference
}

var kindMessages = map[Kind]UserMessage{
	KindMalformedHeader: {
		Message: "The export holds no INSERT statement for this table",
		Action:  "Export data, not structure only, for this table",
		Code:    "MIG001",
	},
	KindRowArity: {
		Message: "A row has the wrong number of fields and was dropped",
		Action:  "None required; dropped rows are counted in the summary",
		Code:    "MIG002",
	},
	KindConflict: {
		Message: "A row with this legacy id already exists",
		Action:  "None required; the row was skipped",
		Code:    "MIG003",
	},
	KindPersistence: {
		Message: "The target database rejected the row",
		Action:  "Check the log entry carrying the source id",
		Code:    "MIG004",
	},
	KindPrecondition: {
		Message: "A required input or reference row is missing",
		Action:  "Fix the export files or seed the target database, then rerun",
		Code:    "MIG005",
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the underlying error",
	Code:    "ERR000",
}

// Describe returns the operator message for a kind.
func Describe(k Kind) UserMessage {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return defaultMessage
}

// String formats the message with its code for terminal output.
func (m UserMessage) String() string {
	return fmt.Sprintf("[%s] %s. %s.", m.Code, m.Message, m.Action)
}
