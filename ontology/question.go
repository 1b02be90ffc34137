package ontology

import (
	"strings"
	"time"
)

// QuestionType mirrors the three edge types: each typed question asks about
// reachability over its corresponding edge semantics.
type QuestionType = EdgeType

// Question is a typed question against the graph, already resolved to a
// (type, subject, object) triple by the caller. Immutable; its normalized
// form derives the cache key.
type Question struct {
	Type    QuestionType `json:"type"`
	Subject string       `json:"subject"`
	Object  string       `json:"object"`
}

// Normalize returns the question with case- and whitespace-normalized
// subject and object. Normalization happens before cache keying so that
// "Dog " and "dog" hit the same entry.
func (q Question) Normalize() Question {
	return Question{
		Type:    q.Type,
		Subject: strings.ToLower(strings.TrimSpace(q.Subject)),
		Object:  strings.ToLower(strings.TrimSpace(q.Object)),
	}
}

// CacheKey returns the canonical cache key for the normalized question.
func (q Question) CacheKey() string {
	n := q.Normalize()
	return string(n.Type) + "\x1f" + n.Subject + "\x1f" + n.Object
}

// Outcome is the answer to a question.
type Outcome string

const (
	// Yes means a qualifying path was found.
	Yes Outcome = "YES"
	// No means the search space was fully exhausted without hitting the
	// depth bound and no qualifying path exists.
	No Outcome = "NO"
	// Unknown means the engine could not decide: depth bound hit, backend
	// unavailable, breaker open, or caller cancellation.
	Unknown Outcome = "UNKNOWN"
)

// Reason codes attached to UNKNOWN results so callers can distinguish
// "could not decide" causes without parsing messages.
const (
	ReasonMaxDepth           = "max_depth_exceeded"
	ReasonBackendUnavailable = "backend_unavailable"
	ReasonBreakerOpen        = "breaker_open"
	ReasonCancelled          = "cancelled"
	ReasonSubjectNotFound    = "subject_not_found"
	ReasonUnsupportedType    = "unsupported_question_type"
)

// QueryResult is the structured answer to a question. The engine always
// returns a well-formed result; storage failures surface as UNKNOWN with a
// reason, never as a raw error to the caller.
type QueryResult struct {
	Outcome          Outcome        `json:"outcome"`
	Confidence       float64        `json:"confidence"`
	Path             []Relationship `json:"path"`
	EntitiesVisited  int            `json:"entities_visited"`
	MaxDepthExceeded bool           `json:"max_depth_exceeded"`
	CacheHit         bool           `json:"cache_hit"`
	Elapsed          time.Duration  `json:"elapsed"`
	Reason           string         `json:"reason,omitempty"`
}
