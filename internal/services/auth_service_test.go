package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisken/content-sub000/internal/auth"
	"github.com/prisken/content-sub000/internal/backend"
	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
)

func testTokenConfig() *auth.TokenConfig {
	return &auth.TokenConfig{Secret: []byte("services-test-secret"), Expiration: time.Hour}
}

func newLocalAuth(t *testing.T) (*AuthService, *UserService) {
	t.Helper()
	users := NewUserService(newTestStorage(t), nil)
	return NewAuthService(config.AuthModeLocal, users, nil, testTokenConfig()), users
}

func TestLocalRegisterAndLogin(t *testing.T) {
	svc, _ := newLocalAuth(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{
		Email:             "amy@example.com",
		Name:              "Amy",
		Password:          "correct-horse",
		PreferredLanguage: "zh-CN",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Empty(t, sess.User.PasswordHash)
	assert.Equal(t, models.LanguageZH, sess.User.PreferredLanguage)

	user, err := svc.Authenticate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, user.ID)

	again, err := svc.Login(ctx, "AMY@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, again.User.ID)
	assert.False(t, again.User.LastLogin.IsZero())
}

func TestLocalLoginFailures(t *testing.T) {
	svc, users := newLocalAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "x@example.com", Password: "short"})
	assert.True(t, errors.IsValidationError(err))

	sess, err := svc.Register(ctx, RegisterInput{Email: "ben@example.com", Password: "long-enough"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ben@example.com", "wrong-password")
	assert.True(t, errors.IsUnauthorizedError(err))

	_, err = svc.Login(ctx, "nobody@example.com", "long-enough")
	assert.True(t, errors.IsUnauthorizedError(err))

	_, err = svc.Register(ctx, RegisterInput{Email: "ben@example.com", Password: "long-enough"})
	assert.True(t, errors.IsConflictError(err))

	disabled := models.UserDisabled
	_, err = users.UpdateUser(sess.User.ID, models.UserUpdate{Status: &disabled})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ben@example.com", "long-enough")
	assert.True(t, errors.IsForbiddenError(err))

	_, err = svc.Authenticate(sess.Token)
	assert.True(t, errors.IsForbiddenError(err))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _ := newLocalAuth(t)

	_, err := svc.Authenticate("")
	assert.True(t, errors.IsUnauthorizedError(err))

	_, err = svc.Authenticate("garbage")
	assert.True(t, errors.IsUnauthorizedError(err))

	// 签名正确但用户不存在
	token, err := auth.GenerateToken("ghost", "user", testTokenConfig())
	require.NoError(t, err)
	_, err = svc.Authenticate(token)
	assert.True(t, errors.IsUnauthorizedError(err))
}

func TestBackendLoginMirrorsRemoteUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data": map[string]interface{}{
					"token": "remote-token",
					"user":  map[string]interface{}{"id": 42, "email": "Remote@Example.com", "name": "Remote"},
				},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "bad credentials"})
		}
	}))
	t.Cleanup(srv.Close)

	users := NewUserService(newTestStorage(t), nil)
	client := backend.NewClient(srv.URL, "", time.Second)
	svc := NewAuthService(config.AuthModeBackend, users, client, testTokenConfig())
	ctx := context.Background()

	sess, err := svc.Login(ctx, "remote@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "remote@example.com", sess.User.Email)
	assert.Equal(t, "42", sess.User.ExternalID)
	assert.Equal(t, "remote-token", svc.RemoteToken(sess.User.ID))

	// 第二次登录复用本地镜像
	again, err := svc.Login(ctx, "remote@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, again.User.ID)

	_, err = svc.Register(ctx, RegisterInput{Email: "new@example.com", Password: "long-enough"})
	assert.True(t, errors.IsUnauthorizedError(err))
	assert.Equal(t, config.AuthModeBackend, svc.Mode())
}

func TestRemoteTokenIsForgottenWhenUserIsDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"token": "remote-token",
				"user":  map[string]interface{}{"id": 9, "email": "gone@example.com", "name": "Gone"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	users := NewUserService(newTestStorage(t), nil)
	svc := NewAuthService(config.AuthModeBackend, users, backend.NewClient(srv.URL, "", time.Second), testTokenConfig())

	sess, err := svc.Login(context.Background(), "gone@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "remote-token", svc.RemoteToken(sess.User.ID))

	require.NoError(t, users.DeleteUser(sess.User.ID))
	assert.Empty(t, svc.RemoteToken(sess.User.ID))

	// 再次登录会重新建立本地镜像和远端令牌
	again, err := svc.Login(context.Background(), "gone@example.com", "pw")
	require.NoError(t, err)
	assert.NotEqual(t, sess.User.ID, again.User.ID)
	assert.Equal(t, "remote-token", svc.RemoteToken(again.User.ID))

	svc.ForgetRemoteToken(again.User.ID)
	assert.Empty(t, svc.RemoteToken(again.User.ID))
	svc.ForgetRemoteToken("nobody")
}
