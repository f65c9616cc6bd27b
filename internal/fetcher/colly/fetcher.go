// Package collyfetcher implements checker.Fetcher using gocolly.
package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"

	"github.com/JakeFAU/linkprobe/internal/checker"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// DefaultMaxTitleLength is applied when Config.MaxTitleLength is zero.
const DefaultMaxTitleLength = 100

// ErrUnprocessable marks a response that arrived but could not be read.
var ErrUnprocessable = errors.New("response could not be processed")

// Permits bounds concurrent fetches.
type Permits interface {
	Acquire(ctx context.Context) (func(), error)
}

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	MaxTitleLength int
}

// Fetcher implements checker.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	permits       Permits
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponseHeaders(colly.ResponseHeadersCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// visitState collects what the collector callbacks observed for one visit.
type visitState struct {
	mu          sync.Mutex
	headersSeen bool
	response    *colly.Response
	transport   error
}

// New builds a Fetcher. Every fetch holds one permit for its full duration.
func New(cfg Config, permits Permits) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTitleLength == 0 {
		cfg.MaxTitleLength = DefaultMaxTitleLength
	}
	opts := []colly.CollectorOption{
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(newHTTPTransport())
	c.DisableCookies()
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		permits:       permits,
		baseCollector: c,
	}
}

// Fetch checks a single URL and classifies the result.
func (f *Fetcher) Fetch(ctx context.Context, url string) (checker.Outcome, error) {
	if f.permits != nil {
		release, err := f.permits.Acquire(ctx)
		if err != nil {
			return checker.Outcome{}, fmt.Errorf("fetch %s: %w", url, err)
		}
		defer release()
	}

	start := time.Now()
	state := &visitState{}
	collector := f.buildCollector(ctx, state)
	visitErr := collector.Visit(url)

	outcome, err := f.classify(ctx, state, visitErr)
	if err != nil {
		return checker.Outcome{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	outcome.Duration = time.Since(start)
	return outcome, nil
}

func (f *Fetcher) buildCollector(ctx context.Context, state *visitState) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, state)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, state *visitState) {
	hooks.OnResponseHeaders(func(_ *colly.Response) {
		state.mu.Lock()
		state.headersSeen = true
		state.mu.Unlock()
	})

	hooks.OnResponse(func(r *colly.Response) {
		state.mu.Lock()
		state.response = r
		state.mu.Unlock()
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		state.mu.Lock()
		state.transport = err
		state.mu.Unlock()
	})
}

func (f *Fetcher) classify(ctx context.Context, state *visitState, visitErr error) (checker.Outcome, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if visitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return checker.Outcome{}, fmt.Errorf("visit canceled: %w", ctxErr)
		}
		if state.transport != nil {
			return checker.TransportError(state.transport.Error()), nil
		}
		if state.headersSeen && state.response == nil {
			return checker.Outcome{}, fmt.Errorf("%w: %w", ErrUnprocessable, visitErr)
		}
		return checker.TransportError(visitErr.Error()), nil
	}
	if state.response == nil {
		return checker.Outcome{}, errors.New("visit finished without a response")
	}

	status := state.response.StatusCode
	if checker.IsHTTPError(status) {
		return checker.HTTPError(status), nil
	}
	var contentType string
	if state.response.Headers != nil {
		contentType = state.response.Headers.Get("Content-Type")
	}
	title, err := extractTitle(state.response.Body, contentType)
	if err != nil {
		return checker.Outcome{}, fmt.Errorf("%w: %w", ErrUnprocessable, err)
	}
	return checker.Success(status, checker.CleanTitle(title, f.cfg.MaxTitleLength)), nil
}

// extractTitle returns the text of the first <title> element, or
// checker.NoTitle when the document has none.
func extractTitle(body []byte, contentType string) (string, error) {
	r, err := decodeBody(body, contentType)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return checker.NoTitle, nil
	}
	return sel.Text(), nil
}

// decodeBody returns body as UTF-8. Colly transcodes bodies whose
// Content-Type names a charset; everything else is sniffed from the BOM and
// <meta> tags, falling back to windows-1252 when the bytes are not UTF-8.
func decodeBody(body []byte, contentType string) (io.Reader, error) {
	if strings.Contains(strings.ToLower(contentType), "charset") {
		return bytes.NewReader(body), nil
	}
	return charset.NewReader(bytes.NewReader(body), contentType)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
