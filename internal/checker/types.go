package checker

import "time"

// Kind tags the variant carried by an Outcome.
type Kind string

// Outcome kinds produced by a Fetcher.
const (
	KindSuccess        Kind = "success"
	KindHTTPError      Kind = "http_error"
	KindTransportError Kind = "transport_error"
)

// Destination names one of the append-only log files.
type Destination string

// Log destinations written by the store.
const (
	DestinationUseful    Destination = "useful_links"
	DestinationDiscarded Destination = "discarded_links"
	DestinationProcessed Destination = "processed_urls"
)

// NoTitle is recorded when a page has no <title> element.
const NoTitle = "No title"

// Outcome is the result of a single reachability check.
// Only the fields relevant to Kind are populated.
type Outcome struct {
	Kind       Kind
	StatusCode int
	Title      string
	Message    string
	Duration   time.Duration
}

// Success builds a successful outcome.
func Success(status int, title string) Outcome {
	return Outcome{Kind: KindSuccess, StatusCode: status, Title: title}
}

// HTTPError builds an outcome for a response in [400,600).
func HTTPError(status int) Outcome {
	return Outcome{Kind: KindHTTPError, StatusCode: status}
}

// TransportError builds an outcome for connection, DNS, or timeout failures.
func TransportError(message string) Outcome {
	return Outcome{Kind: KindTransportError, Message: message}
}

// IsHTTPError reports whether status falls in the recorded error range.
func IsHTTPError(status int) bool {
	return status >= 400 && status < 600
}

// Record is a single line destined for one of the log files.
type Record struct {
	Destination Destination
	Text        string
}
