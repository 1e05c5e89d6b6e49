// Package problem renders RFC 7807 problem details, the error body used by
// every HTTP surface of the service.
package problem

import (
	"encoding/json"
	"net/http"
)

// ContentType is the media type of problem responses.
const ContentType = "application/problem+json"

// Problem type URIs shared by the domain handlers.
const (
	TypeValidation   = "https://leadcapture.dev/problems/validation-error"
	TypeNotFound     = "https://leadcapture.dev/problems/not-found"
	TypeConflict     = "https://leadcapture.dev/problems/conflict"
	TypeUnauthorized = "https://leadcapture.dev/problems/unauthorized"
	TypeForbidden    = "https://leadcapture.dev/problems/forbidden"
	TypeUpstream     = "https://leadcapture.dev/problems/upstream-error"
	TypeInternal     = "https://leadcapture.dev/problems/internal-error"
)

// Details is the problem+json body.
type Details struct {
	Type   *string              `json:"type,omitempty"`
	Title  string               `json:"title"`
	Status int                  `json:"status"`
	Detail *string              `json:"detail,omitempty"`
	Errors *map[string][]string `json:"errors,omitempty"`
	Reason *string              `json:"reason,omitempty"`
}

// New builds a Details value; empty detail and problemType are omitted.
func New(title, detail, problemType string, status int, fieldErrors map[string][]string) Details {
	p := Details{
		Title:  title,
		Status: status,
	}

	if detail != "" {
		p.Detail = &detail
	}
	if problemType != "" {
		p.Type = &problemType
	}

	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		p.Errors = &copied
	}

	return p
}

// WithReason attaches a machine-readable reason code.
func (d Details) WithReason(reason string) Details {
	if reason != "" {
		d.Reason = &reason
	}
	return d
}

// Write serialises the problem with its status code.
func Write(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteJSON serialises a success payload.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
