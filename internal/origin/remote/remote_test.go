package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cirruslabs/catcache/internal/origin"
	"github.com/cirruslabs/catcache/internal/origin/remote"
	"github.com/stretchr/testify/require"
)

// A minimal payload that http.DetectContentType recognizes as image/jpeg
var jpegBytes = []byte("\xFF\xD8\xFF\xE0\x00\x10JFIF\x00 meow")

func TestFetch(t *testing.T) {
	var requestedPath, requestedAccept string

	originServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestedPath = request.URL.Path
		requestedAccept = request.Header.Get("Accept")

		writer.Header().Set("Content-Type", "image/jpeg")
		_, _ = writer.Write(jpegBytes)
	}))
	t.Cleanup(originServer.Close)

	remote, err := remote.New(originServer.URL, remote.WithHTTPClient(originServer.Client()))
	require.NoError(t, err)

	data, err := remote.Fetch(context.Background(), "200")
	require.NoError(t, err)
	require.Equal(t, jpegBytes, data)
	require.Equal(t, "/200", requestedPath)
	require.Equal(t, "image/*", requestedAccept)
}

func TestFetchWithBasePath(t *testing.T) {
	var requestedPath string

	originServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestedPath = request.URL.Path

		_, _ = writer.Write(jpegBytes)
	}))
	t.Cleanup(originServer.Close)

	remote, err := remote.New(originServer.URL+"/cats/", remote.WithHTTPClient(originServer.Client()))
	require.NoError(t, err)

	_, err = remote.Fetch(context.Background(), "418")
	require.NoError(t, err)
	require.Equal(t, "/cats/418", requestedPath)
}

func TestFetchFailures(t *testing.T) {
	testCases := []struct {
		Name    string
		Handler http.HandlerFunc
	}{
		{
			Name: "no such code",
			Handler: func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(http.StatusNotFound)
				_, _ = writer.Write(jpegBytes)
			},
		},
		{
			Name: "server error",
			Handler: func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			Name: "empty body",
			Handler: func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(http.StatusOK)
			},
		},
		{
			Name: "not an image",
			Handler: func(writer http.ResponseWriter, _ *http.Request) {
				_, _ = writer.Write([]byte("<html><body>definitely not a cat</body></html>"))
			},
		},
		{
			Name: "too large",
			Handler: func(writer http.ResponseWriter, _ *http.Request) {
				_, _ = writer.Write(append(jpegBytes, make([]byte, 1024)...))
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			originServer := httptest.NewServer(testCase.Handler)
			t.Cleanup(originServer.Close)

			remote, err := remote.New(originServer.URL, remote.WithHTTPClient(originServer.Client()),
				remote.WithMaxBytes(512))
			require.NoError(t, err)

			data, err := remote.Fetch(context.Background(), "200")
			require.ErrorIs(t, err, origin.ErrFetch)
			require.Nil(t, data)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	originServer := httptest.NewServer(http.NotFoundHandler())
	originURL := originServer.URL
	originServer.Close()

	remote, err := remote.New(originURL)
	require.NoError(t, err)

	_, err = remote.Fetch(context.Background(), "200")
	require.ErrorIs(t, err, origin.ErrFetch)
}

func TestFetchTimeout(t *testing.T) {
	unblock := make(chan struct{})

	originServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		select {
		case <-unblock:
		case <-request.Context().Done():
		}
	}))
	t.Cleanup(originServer.Close)
	t.Cleanup(func() {
		close(unblock)
	})

	remote, err := remote.New(originServer.URL, remote.WithHTTPClient(originServer.Client()),
		remote.WithTimeout(100*time.Millisecond))
	require.NoError(t, err)

	_, err = remote.Fetch(context.Background(), "200")
	require.ErrorIs(t, err, origin.ErrFetch)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := remote.New("ftp://example.com")
	require.Error(t, err)

	_, err = remote.New("://")
	require.Error(t, err)
}
