// Package cutlistprovider talks to cutlist.at: it fetches candidate cut
// list headers for a recording, fetches a cut list's full INI body by ID,
// and submits newly-created cut lists back (spec §4.3/§4.4).
package cutlistprovider

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/mipimipi/otr/internal/cutlist"
	"github.com/mipimipi/otr/internal/log"
	"golang.org/x/time/rate"
)

const errNotFoundBody = "Not found."

// Client fetches and submits cut lists against cutlist.at, rate-limited to
// be a polite API citizen (golang.org/x/time/rate, grounded on the
// receiver-protection limiter in the openwebif client).
type Client struct {
	http    *http.Client
	limiter *rate.Limiter

	// headersURI, detailURI, and submitHost default to cutlist.at's real
	// endpoints; tests override them to point at an httptest.Server.
	headersURI string
	detailURI  string
	submitHost string
}

// Options configures a Client. All fields have sane defaults when zero.
type Options struct {
	RequestsPerSecond rate.Limit // default: 2
	Burst             int        // default: 4
	Timeout           time.Duration

	// BaseURL overrides cutlist.at's scheme+host, e.g. to point a test at
	// an httptest.Server. Defaults to "http://cutlist.at".
	BaseURL string
}

// New creates a cutlist.at client with a hardened, non-reused transport —
// cutlist.at is a third-party host this process talks to only a handful
// of times per run, so there is no benefit to keeping connections warm.
func New(opts Options) *Client {
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 4
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := opts.BaseURL
	if base == "" {
		base = "http://cutlist.at"
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
		ForceAttemptHTTP2:     false,
	}

	return &Client{
		http:       &http.Client{Transport: transport, Timeout: timeout},
		limiter:    rate.NewLimiter(rps, burst),
		headersURI: base + "/getxml.php?name=",
		detailURI:  base + "/getfile.php?id=",
		submitHost: base,
	}
}

type xmlHeaders struct {
	Headers []xmlHeader `xml:"cutlist"`
}

type xmlHeader struct {
	ID            uint64 `xml:"id"`
	Rating        string `xml:"rating"`
	RatingByOwner string `xml:"ratingbyauthor"`
	Errors        string `xml:"errors"`
}

// Headers fetches the candidate cut list headers for fileName, sorted
// ascending by rating. minRating, if non-zero, discards headers below
// that rating. An empty response body yields an error wrapping
// ErrNoCutlist; a response whose headers are all filtered out yields an
// empty slice with nil error.
func (c *Client) Headers(ctx context.Context, fileName string, minRating uint8) ([]cutlist.Header, error) {
	logger := log.WithComponent("cutlistprovider")

	body, err := c.get(ctx, c.headersURI+url.QueryEscape(fileName), "fetch cut list headers")
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCutlist, fileName)
	}

	var raw xmlHeaders
	if err := xml.Unmarshal(body, &raw); err != nil {
		return nil, &ProviderError{Sentinel: ErrBadResponse, Operation: "parse cut list headers", Err: err}
	}

	headers := make([]cutlist.Header, 0, len(raw.Headers))
	for _, h := range raw.Headers {
		if n, err := strconv.Atoi(h.Errors); err != nil || n > 0 {
			logger.Warn().Uint64("id", h.ID).Str("errors", h.Errors).Msg("ignoring cut list with reported errors")
			continue
		}

		rating, err := strconv.ParseFloat(h.Rating, 64)
		if err != nil {
			rating, _ = strconv.ParseFloat(h.RatingByOwner, 64)
		}
		if minRating > 0 && rating < float64(minRating) {
			continue
		}
		headers = append(headers, cutlist.Header{ID: h.ID, Rating: rating})
	}

	cutlist.SortHeadersByRating(headers)
	return headers, nil
}

// ByID fetches and parses the full cut list body for the given provider
// ID.
func (c *Client) ByID(ctx context.Context, id uint64) (*cutlist.Cutlist, error) {
	body, err := c.get(ctx, c.detailURI+strconv.FormatUint(id, 10), "fetch cut list")
	if err != nil {
		return nil, err
	}
	if string(body) == errNotFoundBody {
		return nil, &ProviderError{Sentinel: ErrNotFound, Operation: "fetch cut list", Status: http.StatusNotFound}
	}

	cl, err := cutlist.ParseINI(bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Sentinel: ErrBadResponse, Operation: "parse cut list", Err: err}
	}
	cl.ID, cl.HasID = id, true
	return cl, nil
}

var reSubmittedID = regexp.MustCompile(`^ID=(\d+)`)

// Submit uploads a newly-created cut list under accessToken and returns
// the ID cutlist.at assigned it.
func (c *Client) Submit(ctx context.Context, ini string, fileName, accessToken string) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("userfile[]", fileName+".cutlist")
	if err != nil {
		return 0, fmt.Errorf("could not build cut list submission request: %w", err)
	}
	if _, err := io.WriteString(part, ini); err != nil {
		return 0, fmt.Errorf("could not build cut list submission request: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("could not build cut list submission request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s/", c.submitHost, accessToken), &buf)
	if err != nil {
		return 0, fmt.Errorf("could not build cut list submission request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &ProviderError{Sentinel: ErrUnavailable, Operation: "submit cut list", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 0, &ProviderError{Sentinel: ErrSubmitFailed, Operation: "submit cut list", Status: resp.StatusCode, Body: string(respBody)}
	}

	m := reSubmittedID.FindSubmatch(respBody)
	if m == nil {
		return 0, &ProviderError{Sentinel: ErrBadResponse, Operation: "submit cut list", Body: string(respBody)}
	}
	id, err := strconv.ParseUint(string(m[1]), 10, 64)
	if err != nil {
		return 0, &ProviderError{Sentinel: ErrBadResponse, Operation: "submit cut list", Err: err}
	}
	return id, nil
}

func (c *Client) get(ctx context.Context, uri, op string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request for %s: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ProviderError{Sentinel: ErrUnavailable, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Sentinel: ErrUnavailable, Operation: op, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
