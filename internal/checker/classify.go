package checker

import "fmt"

// Classify maps an outcome for url to the content record it produces.
// Titles are written verbatim; commas are not escaped.
func Classify(url string, outcome Outcome) Record {
	switch outcome.Kind {
	case KindSuccess:
		return Record{Destination: DestinationUseful, Text: url + "," + outcome.Title}
	case KindHTTPError:
		return Record{Destination: DestinationDiscarded, Text: fmt.Sprintf("%s, Status: %d", url, outcome.StatusCode)}
	default:
		return Record{Destination: DestinationDiscarded, Text: fmt.Sprintf("%s, Error: %s", url, outcome.Message)}
	}
}

// ProcessedRecord is the checkpoint line appended for every attempted URL.
func ProcessedRecord(url string) Record {
	return Record{Destination: DestinationProcessed, Text: url}
}
