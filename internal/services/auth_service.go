// internal/services/auth_service.go
package services

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	"github.com/prisken/content-sub000/internal/auth"
	"github.com/prisken/content-sub000/internal/backend"
	"github.com/prisken/content-sub000/internal/config"
	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/utils"
)

const minPasswordLength = 8

// AuthService 注册、登录与令牌校验
type AuthService struct {
	mode     string
	users    *UserService
	backend  *backend.Client
	tokenCfg *auth.TokenConfig
	logger   *utils.Logger

	// 后端模式下保存远端令牌，转发请求时使用
	remoteMu     sync.RWMutex
	remoteTokens map[string]string
}

// Session 登录成功后返回给客户端的内容
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// RegisterInput 注册参数
type RegisterInput struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	Password          string `json:"password"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}

// NewAuthService 创建认证服务；mode 为 config.AuthModeLocal 或 config.AuthModeBackend
func NewAuthService(mode string, users *UserService, client *backend.Client, tokenCfg *auth.TokenConfig) *AuthService {
	if mode == "" {
		mode = config.AuthModeLocal
	}
	s := &AuthService{
		mode:         mode,
		users:        users,
		backend:      client,
		tokenCfg:     tokenCfg,
		logger:       utils.GetLogger(),
		remoteTokens: make(map[string]string),
	}
	if users != nil {
		users.OnDelete(s.ForgetRemoteToken)
	}
	return s
}

// Register 创建账号并直接登录
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if len(in.Password) < minPasswordLength {
		return nil, errors.NewValidationError("password must be at least 8 characters", nil)
	}
	lang := models.NormalizeLanguage(in.PreferredLanguage)

	if s.mode == config.AuthModeBackend {
		res, err := s.backend.Register(ctx, backend.RegisterRequest{
			Email:             in.Email,
			Name:              in.Name,
			Password:          in.Password,
			PreferredLanguage: string(lang),
		})
		if err != nil {
			return nil, err
		}
		return s.mirrorRemote(res)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, errors.NewProcessingError("处理密码失败", err)
	}
	user, err := s.users.CreateUser(NewUserInput{
		Email:             in.Email,
		Name:              in.Name,
		PasswordHash:      hash,
		PreferredLanguage: lang,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login 校验凭证
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if s.mode == config.AuthModeBackend {
		res, err := s.backend.Login(ctx, email, password)
		if err != nil {
			if errors.IsUnauthorizedError(err) {
				return nil, errors.NewUnauthorizedError("invalid credentials", err).WithKey("auth.invalid_credentials")
			}
			return nil, err
		}
		return s.mirrorRemote(res)
	}

	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return nil, errors.NewUnauthorizedError("invalid credentials", nil).WithKey("auth.invalid_credentials")
		}
		return nil, err
	}
	if user.PasswordHash == "" || !utils.CheckPassword(user.PasswordHash, password) {
		s.logger.Warn("登录失败", map[string]interface{}{"user_id": user.ID})
		return nil, errors.NewUnauthorizedError("invalid credentials", nil).WithKey("auth.invalid_credentials")
	}
	if user.Status != models.UserActive {
		return nil, errors.NewForbiddenError("account disabled", nil).WithKey("auth.account_disabled")
	}
	return s.issue(user)
}

// mirrorRemote 在本地保存一份远端用户，以便本地会话、内容库和管理后台使用
func (s *AuthService) mirrorRemote(res *backend.AuthResult) (*Session, error) {
	email := normalizeEmail(res.User.Email)
	user, err := s.users.FindByEmail(email)
	switch {
	case err == nil:
		if user.Status != models.UserActive {
			return nil, errors.NewForbiddenError("account disabled", nil).WithKey("auth.account_disabled")
		}
	case errors.IsNotFoundError(err):
		user, err = s.users.CreateUser(NewUserInput{
			Email:             email,
			Name:              res.User.Name,
			PreferredLanguage: models.NormalizeLanguage(res.User.PreferredLanguage),
			ExternalID:        res.User.ID.String(),
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if res.Token != "" {
		s.remoteMu.Lock()
		s.remoteTokens[user.ID] = res.Token
		s.remoteMu.Unlock()
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*Session, error) {
	token, err := auth.GenerateToken(user.ID, string(user.Role), s.tokenCfg)
	if err != nil {
		return nil, errors.NewProcessingError("生成令牌失败", err)
	}
	if touched, err := s.users.TouchLogin(user.ID); err == nil {
		user = touched
	}
	s.logger.Info("用户登录", map[string]interface{}{"user_id": user.ID, "mode": s.mode})
	return &Session{Token: token, User: user.Public()}, nil
}

// Authenticate 解析令牌并返回当前用户；角色以存储中的为准
func (s *AuthService) Authenticate(token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.NewUnauthorizedError("missing token", nil)
	}

	parsed, err := auth.ParseToken(token, s.tokenCfg)
	if err != nil {
		if stderrors.Is(err, auth.ErrTokenExpired) {
			return nil, errors.NewUnauthorizedError("token expired", err).WithKey("auth.session_expired")
		}
		return nil, errors.NewUnauthorizedError("invalid token", err)
	}

	user, err := s.users.GetUser(parsed.UserID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			s.ForgetRemoteToken(parsed.UserID)
			return nil, errors.NewUnauthorizedError("user no longer exists", err)
		}
		return nil, err
	}
	if user.Status != models.UserActive {
		return nil, errors.NewForbiddenError("account disabled", nil).WithKey("auth.account_disabled")
	}
	return user, nil
}

// RemoteToken 返回后端模式下该用户的远端令牌
func (s *AuthService) RemoteToken(userID string) string {
	s.remoteMu.RLock()
	defer s.remoteMu.RUnlock()
	return s.remoteTokens[userID]
}

// ForgetRemoteToken 丢弃该用户的远端令牌；用户被删除或远端返回未授权时调用
func (s *AuthService) ForgetRemoteToken(userID string) {
	s.remoteMu.Lock()
	defer s.remoteMu.Unlock()
	if _, ok := s.remoteTokens[userID]; ok {
		delete(s.remoteTokens, userID)
		s.logger.Debug("远端令牌已清除", map[string]interface{}{"user_id": userID})
	}
}

// Mode 当前认证模式
func (s *AuthService) Mode() string {
	return s.mode
}
