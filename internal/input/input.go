// Package input reads the URL list for a run.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads one URL per line from path. Surrounding whitespace is trimmed
// and blank lines are skipped; order and duplicates are preserved.
func Load(path string) ([]string, error) {
	// #nosec G304 -- the input path is operator supplied.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()
	urls, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	return urls, nil
}

// Parse reads URLs from r using the same rules as Load. Lines have no
// length limit; a final line without a trailing newline is kept.
func Parse(r io.Reader) ([]string, error) {
	var urls []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			urls = append(urls, trimmed)
		}
		if errors.Is(err, io.EOF) {
			return urls, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read urls: %w", err)
		}
	}
}

// Pending returns the URLs not present in processed, keeping input order
// and duplicates.
func Pending(urls []string, processed map[string]struct{}) []string {
	pending := make([]string, 0, len(urls))
	for _, url := range urls {
		if _, done := processed[url]; done {
			continue
		}
		pending = append(pending, url)
	}
	return pending
}
