package harvest

import "fmt"

// Status is the persisted lifecycle state of a discovered link.
type Status int

// Status values stored in the found_links table. The integer values are
// part of the persisted schema and must not be renumbered.
const (
	StatusPending  Status = 0
	StatusVisited  Status = 1
	StatusError    Status = 2
	StatusFile     Status = 4
	StatusTag      Status = 5
	StatusCategory Status = 6
	StatusArticle  Status = 7
)

// String returns a human-readable name for logging and API payloads.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusVisited:
		return "visited"
	case StatusError:
		return "error"
	case StatusFile:
		return "file"
	case StatusTag:
		return "tag"
	case StatusCategory:
		return "category"
	case StatusArticle:
		return "article"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVisited, StatusError,
		StatusFile, StatusTag, StatusCategory, StatusArticle:
		return true
	}
	return false
}

// transitions holds the allowed status moves. File is handled separately:
// any link whose href matches a binary-resource extension is forced to
// File regardless of its prior state.
var transitions = map[Status][]Status{
	StatusPending:  {StatusVisited, StatusError},
	StatusVisited:  {StatusTag, StatusCategory, StatusArticle, StatusError},
	StatusTag:      {StatusError},
	StatusCategory: {StatusError},
}

// CanTransition reports whether a link may move from one status to
// another. Error, File, and Article are terminal except for the
// forced File override.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == StatusFile {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
