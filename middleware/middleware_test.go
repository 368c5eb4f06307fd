package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princinho/videotube/models"
	"github.com/princinho/videotube/repository/repotest"
	"github.com/princinho/videotube/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
	Data       json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

type authFixture struct {
	router *gin.Engine
	tokens *utils.TokenManager
	user   *models.User
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	repo := repotest.NewUserRepository()
	user := &models.User{Username: "ab", Email: "a@b.com", FullName: "A B", PasswordHash: "hash", RefreshToken: "rt"}
	require.NoError(t, repo.Create(context.Background(), user))
	tokens := utils.NewTokenManager("access", "refresh", time.Minute, time.Hour)

	r := gin.New()
	r.GET("/private", VerifyJWT(repo, tokens), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, u)
	})
	r.GET("/public", OptionalJWT(repo, tokens), func(c *gin.Context) {
		_, ok := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"signedIn": ok})
	})
	return authFixture{router: r, tokens: tokens, user: user}
}

func (f authFixture) accessToken(t *testing.T) string {
	t.Helper()
	tok, err := f.tokens.GenerateAccessToken(f.user.ID.Hex(), f.user.Email, f.user.Username, f.user.FullName)
	require.NoError(t, err)
	return tok
}

func TestVerifyJWT(t *testing.T) {
	f := newAuthFixture(t)
	valid := f.accessToken(t)
	refresh, err := f.tokens.GenerateRefreshToken(f.user.ID.Hex())
	require.NoError(t, err)
	stranger, err := f.tokens.GenerateAccessToken("64b7f0c2a1b2c3d4e5f60718", "x@y.z", "x", "X")
	require.NoError(t, err)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		status  int
		message string
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized, "Unauthorized request"},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: valid}) }, http.StatusOK, ""},
		{"cookie wins over header", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: valid})
			r.Header.Set("Authorization", "Bearer garbage")
		}, http.StatusOK, ""},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }, http.StatusUnauthorized, "Invalid Access Token"},
		{"refresh token used as access", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+refresh) }, http.StatusUnauthorized, "Invalid Access Token"},
		{"unknown user", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+stranger) }, http.StatusUnauthorized, "Invalid Access Token"},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic "+valid) }, http.StatusUnauthorized, "Unauthorized request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				env := decode(t, w)
				assert.False(t, env.Success)
				assert.Equal(t, tt.message, env.Message)
				return
			}
			body := w.Body.String()
			assert.Contains(t, body, `"username":"ab"`)
			assert.NotContains(t, body, "password")
			assert.NotContains(t, body, "refreshToken")
		})
	}
}

func TestOptionalJWT(t *testing.T) {
	f := newAuthFixture(t)

	for name, tc := range map[string]struct {
		header   string
		signedIn bool
	}{
		"anonymous":     {"", false},
		"invalid token": {"Bearer nope", false},
		"valid token":   {"Bearer " + f.accessToken(t), true},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/public", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var body struct{ SignedIn bool }
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.signedIn, body.SignedIn)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler(quietLogger()), Recovery(quietLogger()))
	r.GET("/api", func(c *gin.Context) {
		_ = c.Error(utils.BadRequest("All fields are required", "fullName is empty"))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("kaboom")
	})
	r.GET("/ok", func(c *gin.Context) {
		utils.Respond(c, http.StatusOK, gin.H{}, "fine")
	})

	t.Run("api error keeps status", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w)
		assert.Equal(t, 400, env.StatusCode)
		assert.False(t, env.Success)
		assert.Equal(t, "All fields are required", env.Message)
		assert.Equal(t, []string{"fullName is empty"}, env.Errors)
		assert.Equal(t, "null", string(env.Data))
		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("plain error becomes 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		env := decode(t, w)
		assert.Equal(t, "Internal server error", env.Message)
		assert.NotContains(t, w.Body.String(), "boom")
	})

	t.Run("panic becomes 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.False(t, decode(t, w).Success)
	})

	t.Run("success untouched", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		require.Equal(t, http.StatusOK, w.Code)
		env := decode(t, w)
		assert.True(t, env.Success)
		assert.Equal(t, "fine", env.Message)
	})
}

func TestRequestID_Propagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.String(http.StatusOK, string(body))
	})

	send := func(contentType, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("application/json", `{"a":1}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, send("application/json", `{"a":"too long"}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, send("application/x-www-form-urlencoded", "a=123456789"))
	assert.Equal(t, http.StatusOK, send("multipart/form-data; boundary=x", "0123456789abcdef"))
}
