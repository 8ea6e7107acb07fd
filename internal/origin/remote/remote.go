package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cirruslabs/catcache/internal/origin"
	"github.com/dustin/go-humanize"
)

const (
	DefaultURL      = "https://http.cat"
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 10 * humanize.MByte
)

// Remote fetches images over HTTP from "<base URL>/<key>".
type Remote struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   uint64
}

func New(baseURL string, opts ...Option) (*Remote, error) {
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse origin URL %q: %w", baseURL, err)
	}

	if parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https" {
		return nil, fmt.Errorf("origin URL %q should use either http or https scheme", baseURL)
	}

	remote := &Remote{
		baseURL:  parsedBaseURL,
		timeout:  DefaultTimeout,
		maxBytes: DefaultMaxBytes,
	}

	// Apply options
	for _, opt := range opts {
		opt(remote)
	}

	// Apply defaults
	if remote.httpClient == nil {
		transport, err := newTransport()
		if err != nil {
			return nil, fmt.Errorf("failed to configure origin transport: %w", err)
		}

		remote.httpClient = &http.Client{
			Transport: transport,
		}
	}

	return remote, nil
}

func (remote *Remote) Fetch(ctx context.Context, key string) ([]byte, error) {
	if remote.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, remote.timeout)
		defer cancel()
	}

	fetchURL := remote.baseURL.JoinPath(key)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create a request: %v", origin.ErrFetch, err)
	}

	request.Header.Set("Accept", "image/*")

	response, err := remote.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to perform a request to %s: %v", origin.ErrFetch, fetchURL, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		// Drain the body so that the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 64*humanize.KByte))

		return nil, fmt.Errorf("%w: %s responded with HTTP %d", origin.ErrFetch, fetchURL,
			response.StatusCode)
	}

	// Read one byte more than allowed to detect oversized payloads
	data, err := io.ReadAll(io.LimitReader(response.Body, int64(remote.maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read the response from %s: %v", origin.ErrFetch, fetchURL, err)
	}

	if uint64(len(data)) > remote.maxBytes {
		return nil, fmt.Errorf("%w: %s responded with more than %s", origin.ErrFetch, fetchURL,
			humanize.Bytes(remote.maxBytes))
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s responded with an empty body", origin.ErrFetch, fetchURL)
	}

	if contentType := http.DetectContentType(data); !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: %s responded with %s instead of an image", origin.ErrFetch, fetchURL,
			contentType)
	}

	return data, nil
}
