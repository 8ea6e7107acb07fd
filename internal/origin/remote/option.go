package remote

import (
	"net/http"
	"time"
)

type Option func(remote *Remote)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(remote *Remote) {
		remote.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(remote *Remote) {
		remote.timeout = timeout
	}
}

func WithMaxBytes(maxBytes uint64) Option {
	return func(remote *Remote) {
		remote.maxBytes = maxBytes
	}
}
