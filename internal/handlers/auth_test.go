package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/vidtube/internal/service/auth"
	"github.com/nkiryanov/vidtube/internal/testutil"
)

func Test_AuthHandlers(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("login ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			alice := registerAlice(t, env)

			resp, body := postJSON(t, env.url+"/login", `{"username": "alice", "password": "correct"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

			var envelope struct {
				StatusCode int            `json:"statusCode"`
				Message    string         `json:"message"`
				Success    bool           `json:"success"`
				Data       map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &envelope))
			require.Equal(t, http.StatusOK, envelope.StatusCode)
			require.True(t, envelope.Success)
			require.Equal(t, "User logged in successfully", envelope.Message)
			require.NotEmpty(t, envelope.Data["accessToken"])
			require.NotEmpty(t, envelope.Data["refreshToken"])

			user, ok := envelope.Data["user"].(map[string]any)
			require.True(t, ok, "user should be returned")
			require.Equal(t, alice.ID.String(), user["id"])
			require.Equal(t, "alice", user["username"])
			require.NotContains(t, user, "password", "sanitized profile has no password")
			require.NotContains(t, user, "hashedPassword")
			require.NotContains(t, user, "refreshToken", "sanitized profile has no refresh token")

			require.Len(t, resp.Cookies(), 2)
			access := cookieByName(resp.Cookies(), auth.AccessCookieName)
			refresh := cookieByName(resp.Cookies(), auth.RefreshCookieName)
			require.NotNil(t, access)
			require.NotNil(t, refresh)
			require.Equal(t, envelope.Data["accessToken"], access.Value, "cookie and body carry the same token")
			require.Equal(t, envelope.Data["refreshToken"], refresh.Value)
			for _, c := range []*http.Cookie{access, refresh} {
				require.True(t, c.HttpOnly, "cookie should be HttpOnly")
				require.True(t, c.Secure, "cookie should be Secure")
				require.Equal(t, "/", c.Path, "cookie should be available on / path")
				require.Equal(t, http.SameSiteStrictMode, c.SameSite, "cookie should be SameSite Strict")
			}
			require.InDelta(t, (15 * time.Minute).Seconds(), access.MaxAge, 1, "max age should be access TTL")
			require.InDelta(t, (10 * 24 * time.Hour).Seconds(), refresh.MaxAge, 1, "max age should be refresh TTL")
		})
	})

	t.Run("login by email ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			registerAlice(t, env)

			resp, body := postJSON(t, env.url+"/login", `{"email": "alice@example.com", "password": "correct"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Len(t, resp.Cookies(), 2)
		})
	})

	t.Run("login failed", func(t *testing.T) {
		tests := []struct {
			name         string
			data         string
			expectedCode int
			expectedBody string
		}{
			{
				name:         "wrong password",
				data:         `{"username": "alice", "password": "wrong"}`,
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"statusCode": 401, "data": null, "success": false, "error": "service_error", "message": "Invalid user credentials"}`,
			},
			{
				name:         "user not exists",
				data:         `{"username": "bob", "password": "correct"}`,
				expectedCode: http.StatusNotFound,
				expectedBody: `{"statusCode": 404, "data": null, "success": false, "error": "service_error", "message": "User does not exist"}`,
			},
			{
				name:         "no identifier",
				data:         `{"password": "correct"}`,
				expectedCode: http.StatusBadRequest,
				expectedBody: `{
					"statusCode": 400,
					"data": null,
					"success": false,
					"error": "validation_failed",
					"message": "Request validation failed",
					"fields": {"username": "This field is required if 'Email' is not set"}
				}`,
			},
			{
				name:         "blank identifier",
				data:         `{"username": "  ", "password": "correct"}`,
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"statusCode": 400, "data": null, "success": false, "error": "service_error", "message": "Username or email is required"}`,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withServer(pg.Pool, t, func(env testEnv) {
					registerAlice(t, env)

					resp, body := postJSON(t, env.url+"/login", tt.data)

					require.Equalf(t, tt.expectedCode, resp.StatusCode, "not expected code. Body: %s", body)
					require.JSONEq(t, tt.expectedBody, body)
					require.Empty(t, resp.Cookies(), "no cookies should be set on login error")
				})
			})
		}
	})

	t.Run("refresh with cookie ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			registerAlice(t, env)
			first := loginAlice(t, env)

			resp, body := doRequest(t, http.MethodPost, env.url+"/refresh-token", "", nil, cookieByName(first, auth.RefreshCookieName))

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.Len(t, resp.Cookies(), 2)
			second := resp.Cookies()
			require.NotEqual(t, cookieByName(first, auth.RefreshCookieName).Value, cookieByName(second, auth.RefreshCookieName).Value, "refresh token should be changed after refresh")
			require.NotEqual(t, cookieByName(first, auth.AccessCookieName).Value, cookieByName(second, auth.AccessCookieName).Value, "access token should be changed after refresh")
			require.True(t, cookieByName(second, auth.RefreshCookieName).HttpOnly, "rotated refresh cookie keeps its attributes")
			require.True(t, cookieByName(second, auth.RefreshCookieName).Secure, "rotated refresh cookie keeps its attributes")
		})
	})

	t.Run("refresh with body ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			registerAlice(t, env)
			first := loginAlice(t, env)

			resp, body := postJSON(t, env.url+"/refresh-token", `{"refreshToken": "`+cookieByName(first, auth.RefreshCookieName).Value+`"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			var envelope struct {
				Data struct {
					AccessToken  string `json:"accessToken"`
					RefreshToken string `json:"refreshToken"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &envelope))
			require.Equal(t, cookieByName(resp.Cookies(), auth.RefreshCookieName).Value, envelope.Data.RefreshToken)
			require.Equal(t, cookieByName(resp.Cookies(), auth.AccessCookieName).Value, envelope.Data.AccessToken)
		})
	})

	t.Run("refresh twice fail", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			registerAlice(t, env)
			refresh := cookieByName(loginAlice(t, env), auth.RefreshCookieName)

			resp, body := doRequest(t, http.MethodPost, env.url+"/refresh-token", "", nil, refresh)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

			// Try to refresh tokens second time
			resp, body = doRequest(t, http.MethodPost, env.url+"/refresh-token", "", nil, refresh)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{
				"statusCode": 401,
				"data": null,
				"success": false,
				"error": "service_error",
				"message": "Refresh token is expired or used"
			}`, body)
			require.Empty(t, resp.Cookies())
		})
	})

	t.Run("refresh failed", func(t *testing.T) {
		tests := []struct {
			name        string
			data        string
			expectedMsg string
		}{
			{"no token", ``, "Unauthorized request"},
			{"empty token", `{"refreshToken": ""}`, "Unauthorized request"},
			{"garbage token", `{"refreshToken": "garbage"}`, "Invalid refresh token"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withServer(pg.Pool, t, func(env testEnv) {
					resp, body := postJSON(t, env.url+"/refresh-token", tt.data)

					require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
					require.Contains(t, body, tt.expectedMsg)
				})
			})
		}
	})

	t.Run("logout", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			registerAlice(t, env)
			cookies := loginAlice(t, env)

			resp, body := doRequest(t, http.MethodPost, env.url+"/logout", "", nil, cookies...)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{"statusCode": 200, "data": {}, "message": "User logged out", "success": true}`, body)
			require.Len(t, resp.Cookies(), 2)
			for _, c := range resp.Cookies() {
				require.Empty(t, c.Value, "cookie %s should be cleared", c.Name)
				require.Equal(t, -1, c.MaxAge, "cookie %s should be removed", c.Name)
			}

			// Pre-logout refresh token is revoked
			resp, body = doRequest(t, http.MethodPost, env.url+"/refresh-token", "", nil, cookieByName(cookies, auth.RefreshCookieName))
			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("logout requires auth", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			resp, body := doRequest(t, http.MethodPost, env.url+"/logout", "", nil)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `{
				"statusCode": 401,
				"data": null,
				"success": false,
				"error": "service_error",
				"message": "Unauthorized request"
			}`, body)
		})
	})

	t.Run("change password", func(t *testing.T) {
		withServer(pg.Pool, t, func(env testEnv) {
			registerAlice(t, env)
			cookies := loginAlice(t, env)

			resp, body := postJSON(t, env.url+"/change-password", `{"oldPassword": "wrong", "newPassword": "new-password"}`, cookies...)
			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, "Invalid old password")

			resp, body = postJSON(t, env.url+"/change-password", `{"oldPassword": "correct", "newPassword": " "}`, cookies...)
			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, "validation_failed")

			resp, body = postJSON(t, env.url+"/change-password", `{"oldPassword": "correct", "newPassword": "new-password"}`, cookies...)
			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

			resp, _ = postJSON(t, env.url+"/login", `{"username": "alice", "password": "correct"}`)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "old password should not work")
			resp, _ = postJSON(t, env.url+"/login", `{"username": "alice", "password": "new-password"}`)
			require.Equal(t, http.StatusOK, resp.StatusCode, "new password should work")
		})
	})
}
