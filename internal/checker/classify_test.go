package checker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		want    Record
	}{
		{
			name:    "success",
			outcome: Success(200, "Hello World"),
			want:    Record{Destination: DestinationUseful, Text: "https://a.test,Hello World"},
		},
		{
			name:    "title with comma is not escaped",
			outcome: Success(200, "Hello, World"),
			want:    Record{Destination: DestinationUseful, Text: "https://a.test,Hello, World"},
		},
		{
			name:    "http error",
			outcome: HTTPError(404),
			want:    Record{Destination: DestinationDiscarded, Text: "https://a.test, Status: 404"},
		},
		{
			name:    "transport error",
			outcome: TransportError("connection refused"),
			want:    Record{Destination: DestinationDiscarded, Text: "https://a.test, Error: connection refused"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Classify("https://a.test", tt.outcome))
		})
	}
}

func TestProcessedRecord(t *testing.T) {
	t.Parallel()

	require.Equal(t, Record{Destination: DestinationProcessed, Text: "https://a.test"}, ProcessedRecord("https://a.test"))
}

func TestIsHTTPError(t *testing.T) {
	t.Parallel()

	for status, want := range map[int]bool{200: false, 301: false, 399: false, 400: true, 404: true, 503: true, 599: true, 600: false} {
		require.Equal(t, want, IsHTTPError(status), "status %d", status)
	}
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 150)
	got := CleanTitle(long, 100)
	require.Equal(t, strings.Repeat("a", 100)+"...", got)

	short := strings.Repeat("b", 50)
	require.Equal(t, short, CleanTitle(short, 100))

	exact := strings.Repeat("c", 100)
	require.Equal(t, exact, CleanTitle(exact, 100))

	require.Equal(t, "Hello World", CleanTitle("\r\n  Hello\nWorld\r\n", 100))
	require.Equal(t, "line one line two", CleanTitle("line one\r\nline two", 100))

	// Line breaks are flattened before measuring length.
	withBreaks := strings.Repeat("d", 99) + "\r\n"
	require.Equal(t, strings.Repeat("d", 99), CleanTitle(withBreaks, 100))

	require.Equal(t, "ünïcødé…", CleanTitle("ünïcødé…", 8))
	require.Equal(t, "ünï...", CleanTitle("ünïcødé", 3))
	require.Equal(t, long, CleanTitle(long, 0))
}

func TestCleanTitleReplacesInvalidUTF8(t *testing.T) {
	t.Parallel()

	got := CleanTitle("Caf\xe9 cr\xe8me", 100)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, "Caf\uFFFD cr\uFFFDme", got)

	got = CleanTitle("\xe9a\xe9b", 2)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, "\uFFFDa...", got)
}
