package tabular

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/bondweb/internal/record"
)

// maxSourceSize caps how much of a source is read.
const maxSourceSize = 32 << 20

// LoadError reports that a source could not be retrieved. Location is the
// address as configured, without the cache-busting parameter.
type LoadError struct {
	Location   string
	StatusCode int
	Status     string
	Err        error
}

func (e *LoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to load %s: %s", e.Location, e.Status)
	}
	return fmt.Sprintf("failed to load %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err is or wraps a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Fetcher retrieves source text from HTTP(S) URLs or local files. Every
// call reads the current content; nothing is cached.
type Fetcher struct {
	client *http.Client
	now    func() time.Time
}

// NewFetcher returns a Fetcher using client, or a client with a 30s timeout
// when client is nil.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{client: client, now: time.Now}
}

// IsRemote reports whether location is fetched over HTTP.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// CacheBust appends v=<unix millis> to location, joining with '&' when the
// location already carries a query and '?' otherwise. A fragment stays last.
func CacheBust(location string, t time.Time) string {
	frag := ""
	if i := strings.IndexByte(location, '#'); i >= 0 {
		location, frag = location[:i], location[i:]
	}
	sep := "?"
	if strings.Contains(location, "?") {
		sep = "&"
	}
	return location + sep + "v=" + strconv.FormatInt(t.UnixMilli(), 10) + frag
}

// Fetch returns the decoded text at location. A UTF-8 or UTF-16 byte order
// mark is honoured and stripped; invalid UTF-8 is replaced.
func (f *Fetcher) Fetch(ctx context.Context, location string) (string, error) {
	var body io.ReadCloser
	if IsRemote(location) {
		rc, err := f.open(ctx, location)
		if err != nil {
			return "", err
		}
		body = rc
	} else {
		file, err := os.Open(location)
		if err != nil {
			return "", &LoadError{Location: location, Err: err}
		}
		body = file
	}
	defer body.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(io.LimitReader(transform.NewReader(body, decoder), maxSourceSize))
	if err != nil {
		return "", &LoadError{Location: location, Err: err}
	}
	return string(data), nil
}

func (f *Fetcher) open(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, CacheBust(location, f.now()), nil)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &LoadError{Location: location, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, nil
}

// Load fetches location and parses it.
func (f *Fetcher) Load(ctx context.Context, location string) ([]record.Record, error) {
	text, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	return Parse(text), nil
}
