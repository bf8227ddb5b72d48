// internal/services/user_service.go
package services

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/storage"
	"github.com/prisken/content-sub000/internal/utils"
)

const usersDir = "users"

// emailLockKey 所有涉及邮箱唯一性的写操作共用一把锁
const emailLockKey = "users:email"

// UserService 处理用户相关的业务逻辑，每个用户一个 JSON 文件
type UserService struct {
	storage *storage.FileStorage
	locks   *LockManager
	logger  *utils.Logger

	hooksMu     sync.RWMutex
	deleteHooks []func(userID string)
}

// NewUserService 创建用户服务
func NewUserService(fs *storage.FileStorage, locks *LockManager) *UserService {
	if locks == nil {
		locks = NewLockManager()
	}
	return &UserService{storage: fs, locks: locks, logger: utils.GetLogger()}
}

// OnDelete 注册用户删除后的回调
func (s *UserService) OnDelete(fn func(userID string)) {
	s.hooksMu.Lock()
	s.deleteHooks = append(s.deleteHooks, fn)
	s.hooksMu.Unlock()
}

// NewUserInput 创建用户的参数；PasswordHash 可以为空（后端认证模式）
type NewUserInput struct {
	Email             string
	Name              string
	PasswordHash      string
	Role              models.Role
	PreferredLanguage models.Language
	ExternalID        string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser 创建新用户，邮箱重复时返回冲突错误
func (s *UserService) CreateUser(in NewUserInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.NewValidationError("invalid email", nil)
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.Valid() {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid role %q", in.Role), nil)
	}
	if !in.PreferredLanguage.Valid() {
		in.PreferredLanguage = models.DefaultLanguage
	}

	var user *models.User
	err := s.locks.ExecuteWithLock(emailLockKey, func() error {
		existing, err := s.FindByEmail(email)
		if err != nil && !errors.IsNotFoundError(err) {
			return err
		}
		if existing != nil {
			return errors.NewConflictError("email already registered", nil).WithKey("auth.email_taken")
		}

		now := time.Now()
		user = &models.User{
			ID:                uuid.NewString(),
			Email:             email,
			Name:              strings.TrimSpace(in.Name),
			PasswordHash:      in.PasswordHash,
			Role:              in.Role,
			Status:            models.UserActive,
			PreferredLanguage: in.PreferredLanguage,
			CreatedAt:         now,
			LastUpdated:       now,
			ExternalID:        in.ExternalID,
		}
		return s.SaveUser(user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("用户已创建", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// GetUser 获取用户信息
func (s *UserService) GetUser(userID string) (*models.User, error) {
	if userID == "" || strings.ContainsAny(userID, `/\`) {
		return nil, errors.NewNotFoundError("user not found", nil)
	}

	var user models.User
	if err := s.storage.LoadJSONFile(usersDir, userID+".json", &user); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("user %s not found", userID), err)
		}
		return nil, errors.NewProcessingError("读取用户数据失败", err)
	}
	return &user, nil
}

// SaveUser 保存用户信息
func (s *UserService) SaveUser(user *models.User) error {
	if err := s.storage.SaveJSONFile(usersDir, user.ID+".json", user); err != nil {
		return errors.NewProcessingError("保存用户数据失败", err)
	}
	return nil
}

// allUsers 读取全部用户（按创建时间倒序）
func (s *UserService) allUsers() ([]models.User, error) {
	files, err := s.storage.ListFiles(usersDir, ".json")
	if err != nil {
		return nil, errors.NewProcessingError("列出用户失败", err)
	}

	users := make([]models.User, 0, len(files))
	for _, name := range files {
		var u models.User
		if err := s.storage.LoadJSONFile(usersDir, name, &u); err != nil {
			s.logger.Warn("跳过无法读取的用户文件", map[string]interface{}{"file": name, "error": err})
			continue
		}
		users = append(users, u)
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// FindByEmail 按邮箱查找用户
func (s *UserService) FindByEmail(email string) (*models.User, error) {
	email = normalizeEmail(email)
	users, err := s.allUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, errors.NewNotFoundError("user not found", nil)
}

// UserListQuery 管理后台的用户列表查询
type UserListQuery struct {
	PageQuery
	Search string
}

// ListUsers 分页列出用户，Search 匹配邮箱或姓名（不区分大小写）
func (s *UserService) ListUsers(q UserListQuery) (Page[models.User], error) {
	users, err := s.allUsers()
	if err != nil {
		return Page[models.User]{}, err
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := users[:0]
	for _, u := range users {
		if needle != "" &&
			!strings.Contains(u.Email, needle) &&
			!strings.Contains(strings.ToLower(u.Name), needle) {
			continue
		}
		filtered = append(filtered, u.Public())
	}
	return paginate(filtered, q.PageQuery), nil
}

// UpdateUser 管理后台修改姓名、角色或状态
func (s *UserService) UpdateUser(userID string, update models.UserUpdate) (*models.User, error) {
	var user *models.User
	err := s.locks.ExecuteWithLock("user:"+userID, func() error {
		var err error
		user, err = s.GetUser(userID)
		if err != nil {
			return err
		}

		if update.Name != nil {
			user.Name = strings.TrimSpace(*update.Name)
		}
		if update.Role != nil {
			if !update.Role.Valid() {
				return errors.NewValidationError(fmt.Sprintf("invalid role %q", *update.Role), nil)
			}
			user.Role = *update.Role
		}
		if update.Status != nil {
			if !update.Status.Valid() {
				return errors.NewValidationError(fmt.Sprintf("invalid status %q", *update.Status), nil)
			}
			user.Status = *update.Status
		}
		user.LastUpdated = time.Now()
		return s.SaveUser(user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser 删除用户
func (s *UserService) DeleteUser(userID string) error {
	if _, err := s.GetUser(userID); err != nil {
		return err
	}
	if err := s.locks.ExecuteWithLock("user:"+userID, func() error {
		if err := s.storage.DeleteFile(usersDir, userID+".json"); err != nil {
			return errors.NewProcessingError("删除用户失败", err)
		}
		s.logger.Info("用户已删除", map[string]interface{}{"user_id": userID})
		return nil
	}); err != nil {
		return err
	}

	s.hooksMu.RLock()
	hooks := append([]func(string){}, s.deleteHooks...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(userID)
	}
	return nil
}

// SetPreferredLanguage 保存用户的界面语言
func (s *UserService) SetPreferredLanguage(userID string, lang models.Language) error {
	return s.locks.ExecuteWithLock("user:"+userID, func() error {
		user, err := s.GetUser(userID)
		if err != nil {
			return err
		}
		user.PreferredLanguage = lang
		user.LastUpdated = time.Now()
		return s.SaveUser(user)
	})
}

// TouchLogin 记录最近登录时间
func (s *UserService) TouchLogin(userID string) (*models.User, error) {
	var user *models.User
	err := s.locks.ExecuteWithLock("user:"+userID, func() error {
		var err error
		user, err = s.GetUser(userID)
		if err != nil {
			return err
		}
		user.LastLogin = time.Now()
		return s.SaveUser(user)
	})
	return user, err
}

// EnsureAdmin 启动时保证配置中的管理员账号存在
func (s *UserService) EnsureAdmin(email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	existing, err := s.FindByEmail(email)
	if err == nil {
		if existing.Role == models.RoleAdmin {
			return nil
		}
		role := models.RoleAdmin
		_, err = s.UpdateUser(existing.ID, models.UserUpdate{Role: &role})
		return err
	}
	if !errors.IsNotFoundError(err) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.CreateUser(NewUserInput{Email: email, Name: "Administrator", PasswordHash: hash, Role: models.RoleAdmin})
	return err
}
