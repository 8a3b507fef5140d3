// Package transport submits form-encoded HTTP requests on behalf of the
// session API client and delivers raw response bodies asynchronously.
//
// Requests flagged Queued run strictly one at a time in submission
// order through a pausable lane; everything else runs concurrently.
// Completion callbacks are always delivered by a single dispatcher, so
// consumers never observe two completions at once.
package transport

import (
	"net/http"
	"net/url"
)

// Flags control how a request is executed.
type Flags uint8

const (
	// FlagPost sends the form as a POST body instead of query params.
	FlagPost Flags = 1 << iota
	// FlagTLS uses https.
	FlagTLS
	// FlagQueued routes the request through the serialized, pausable lane.
	FlagQueued
	// FlagKeepAlive asks the server to hold the connection open (long polls).
	FlagKeepAlive
)

// CompleteFunc receives the raw response body or a transport-level error.
// Exactly one of body and err is meaningful.
type CompleteFunc func(body []byte, err error)

// Request describes one HTTP exchange. Form is a builder invoked at
// every (re)send, so a resend picks up state refreshed since the
// original submission rather than replaying frozen parameters.
type Request struct {
	Host   string
	Path   string
	Header http.Header
	Form   func() url.Values
	Flags  Flags
	Done   CompleteFunc

	id string
}

// Transport is the surface the session API client depends on.
type Transport interface {
	// Send submits the request for execution.
	Send(req *Request)
	// Resend re-submits an already-completed or in-flight request,
	// rebuilding its form and reusing its completion callback.
	Resend(req *Request)
	// SetQueuePaused holds (true) or releases (false) not-yet-started
	// queued requests. Both directions are idempotent.
	SetQueuePaused(paused bool)
	// Close stops the transport; callbacks for unfinished requests are
	// dropped.
	Close()
}
