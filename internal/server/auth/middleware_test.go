package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cirruslabs/catcache/internal/server/auth"
	"github.com/cirruslabs/catcache/internal/server/token"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	tokenManager, err := token.NewManager("0123456789abcdef")
	require.NoError(t, err)

	validToken, err := tokenManager.Issue("uploader", time.Hour)
	require.NoError(t, err)

	expiredToken, err := tokenManager.Issue("uploader", -time.Hour)
	require.NoError(t, err)

	testCases := []struct {
		Name          string
		Authorization string
		Status        int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized},
		{"valid token", "Bearer " + validToken, http.StatusNoContent},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			var subject string

			handler := auth.Middleware(tokenManager)(func(c echo.Context) error {
				//nolint:forcetypeassert // set by the middleware
				subject = c.Get(auth.ContextKey).(*auth.Auth).Subject

				return c.NoContent(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodPut, "/cat", nil)
			if testCase.Authorization != "" {
				req.Header.Set("Authorization", testCase.Authorization)
			}
			recorder := httptest.NewRecorder()

			require.NoError(t, handler(echo.New().NewContext(req, recorder)))
			require.Equal(t, testCase.Status, recorder.Code)

			if testCase.Status == http.StatusNoContent {
				require.Equal(t, "uploader", subject)
			} else {
				require.Empty(t, subject)
				require.Equal(t, "Unauthorized", recorder.Body.String())
			}
		})
	}
}
