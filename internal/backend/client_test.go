package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", "test-key", 2*time.Second)
	c.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("", "", 0)
	assert.False(t, c.Enabled())

	_, err := c.Translate(context.Background(), "hi", "zh", "")
	assert.True(t, errors.IsUpstreamError(err))
}

func TestTranslate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/translate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"content": "Hello", "target_lang": "zh", "source_lang": "en"}, body)

		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "translated_content": "你好"})
	})

	ctx := WithToken(context.Background(), "user-token")
	out, err := c.Translate(ctx, "Hello", "zh", "en")
	require.NoError(t, err)
	assert.Equal(t, "你好", out)
}

func TestUnsuccessfulAndNon2xxAreUpstreamErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   interface{}
	}{
		"success false": {http.StatusOK, map[string]interface{}{"success": false, "error": "quota exceeded"}},
		"server error":  {http.StatusInternalServerError, map[string]interface{}{"error": "boom"}},
		"bad gateway":   {http.StatusBadGateway, "not json"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := c.Translate(context.Background(), "Hello", "zh", "")
			require.Error(t, err)
			assert.True(t, errors.IsUpstreamError(err), err)
		})
	}
}

func TestUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "token expired"})
	})
	_, err := c.Generate(context.Background(), GenerateRequest{})
	assert.True(t, errors.IsUnauthorizedError(err))
}

func TestGenerate(t *testing.T) {
	sel := models.WizardSelection{
		Direction:     models.DirectionTechnology,
		Platform:      models.PlatformLinkedIn,
		PostType:      "posts",
		Source:        models.SourceNews,
		SelectedTopic: "AI agents",
		Tone:          models.ToneProfessional,
		ImageStyle:    models.ImageStyleModern,
		Language:      models.LanguageEN,
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "linkedin", body["platform"])
		assert.Equal(t, "AI agents", body["selectedTopic"])
		assert.Equal(t, true, body["generate_images"])

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"content":   map[string]interface{}{"text": "Generated post", "hashtags": []string{"#AI"}},
				"images":    []map[string]string{{"url": "https://img.example/1.png", "style": "modern"}},
				"analytics": map[string]interface{}{"reach": 10},
			},
		})
	})

	res, err := c.Generate(context.Background(), NewGenerateRequest(sel, true))
	require.NoError(t, err)
	assert.Equal(t, "Generated post", res.Text)
	assert.Equal(t, []string{"#AI"}, res.Hashtags)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "https://img.example/1.png", res.Images[0].URL)
}

func TestGenerateTopics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/topics/generate", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"topics": []map[string]interface{}{
				{"title": "Edge AI", "description": "Models on devices", "trending_score": 0.9},
				{"title": "AI policy", "description": "Regulation news"},
			},
		})
	})

	topics, err := c.GenerateTopics(context.Background(), models.DirectionTechnology, models.SourceNews, "")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	require.NotNil(t, topics[0].TrendingScore)
	assert.InDelta(t, 0.9, *topics[0].TrendingScore, 1e-9)
	assert.Nil(t, topics[1].TrendingScore)
}

func TestLoginFallsBackOn404(t *testing.T) {
	var apiHits, legacyHits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			atomic.AddInt32(&apiHits, 1)
			http.NotFound(w, r)
		case "/auth/login":
			atomic.AddInt32(&legacyHits, 1)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"user":    map[string]interface{}{"id": 42, "email": "a@example.com", "name": "A"},
			})
		}
	})

	res, err := c.Login(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&apiHits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&legacyHits))
	assert.Equal(t, "42", res.User.ID.String())
	assert.Empty(t, res.Token)
}

func TestRegisterDataShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/register", r.URL.Path)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"token": "remote-token",
				"user":  map[string]interface{}{"id": "u-1", "email": "b@example.com", "name": "B", "role": "admin"},
			},
		})
	})

	res, err := c.Register(context.Background(), RegisterRequest{Email: "b@example.com", Name: "B", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "remote-token", res.Token)
	assert.Equal(t, "u-1", res.User.ID.String())
	assert.Equal(t, "admin", res.User.Role)
}

func TestLoginWithoutUserIsUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	_, err := c.Login(context.Background(), "a@example.com", "pw")
	assert.True(t, errors.IsUpstreamError(err))
}

func TestSetLanguage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/language/zh", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	assert.NoError(t, c.SetLanguage(context.Background(), models.LanguageZH))
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Translate(ctx, "Hello", "zh", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTranslateRetriesTransientStatus(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "warming up"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "translated_content": "你好"})
	})

	out, err := c.Translate(context.Background(), "Hello", "zh", "")
	require.NoError(t, err)
	assert.Equal(t, "你好", out)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestRetryGivesUpAndSkipsPermanentErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{"error": "down"})
	})
	_, err := c.Translate(context.Background(), "Hello", "zh", "")
	assert.True(t, errors.IsUpstreamError(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	// success:false 不重试
	atomic.StoreInt32(&calls, 0)
	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": "quota"})
	})
	_, err = c.Translate(context.Background(), "Hello", "zh", "")
	assert.True(t, errors.IsUpstreamError(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGenerateIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "busy"})
	})
	_, err := c.Generate(context.Background(), GenerateRequest{})
	assert.True(t, errors.IsUpstreamError(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
