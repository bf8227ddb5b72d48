// internal/services/library_service.go
package services

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/i18n"
	"github.com/prisken/content-sub000/internal/models"
	"github.com/prisken/content-sub000/internal/storage"
	"github.com/prisken/content-sub000/internal/utils"
)

const postsDir = "posts"

// LibraryService 用户内容库：posts/<user_id>/<post_id>.json
type LibraryService struct {
	storage  *storage.FileStorage
	locks    *LockManager
	exporter *ExportService
	logger   *utils.Logger
}

// NewLibraryService 创建内容库服务
func NewLibraryService(fs *storage.FileStorage, locks *LockManager, exporter *ExportService) *LibraryService {
	if locks == nil {
		locks = NewLockManager()
	}
	if exporter == nil {
		exporter = NewExportService()
	}
	return &LibraryService{storage: fs, locks: locks, exporter: exporter, logger: utils.GetLogger()}
}

// PostListQuery 内容库列表查询
type PostListQuery struct {
	PageQuery
	Platform models.Platform
}

// PostSummary 仪表盘上的内容库统计
type PostSummary struct {
	Total       int            `json:"total"`
	ByPlatform  map[string]int `json:"by_platform"`
	ByDirection map[string]int `json:"by_direction"`
	LastSavedAt *time.Time     `json:"last_saved_at,omitempty"`
}

func userDir(userID string) string {
	return postsDir + "/" + userID
}

// SavePost 把一次生成结果保存到用户的内容库
func (s *LibraryService) SavePost(userID string, sel models.WizardSelection, content models.GeneratedContent) (*models.Post, error) {
	if userID == "" {
		return nil, errors.NewUnauthorizedError("user is required", nil)
	}
	if strings.TrimSpace(content.Text) == "" {
		return nil, errors.NewValidationError("content text is empty", nil)
	}
	if content.Platform == "" {
		content.Platform = sel.Platform
	}
	if !content.Platform.Valid() {
		return nil, errors.NewUnsupportedPlatformError(string(content.Platform))
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now()
	}

	post := &models.Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Selection: sel,
		Content:   content,
		CreatedAt: time.Now(),
	}

	err := s.locks.ExecuteWithLock("library:"+userID, func() error {
		return s.storage.SaveJSONFile(userDir(userID), post.ID+".json", post)
	})
	if err != nil {
		return nil, errors.NewProcessingError("保存内容失败", err)
	}

	s.logger.Info("内容已保存到内容库", map[string]interface{}{
		"user_id":  userID,
		"post_id":  post.ID,
		"platform": post.Content.Platform,
	})
	return post, nil
}

// allPosts 读取用户全部帖子，新的在前
func (s *LibraryService) allPosts(userID string) ([]models.Post, error) {
	files, err := s.storage.ListFiles(userDir(userID), ".json")
	if err != nil {
		return nil, errors.NewProcessingError("列出内容失败", err)
	}

	posts := make([]models.Post, 0, len(files))
	for _, name := range files {
		var p models.Post
		if err := s.storage.LoadJSONFile(userDir(userID), name, &p); err != nil {
			s.logger.Warn("跳过无法读取的内容文件", map[string]interface{}{"file": name, "error": err})
			continue
		}
		posts = append(posts, p)
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

// ListPosts 分页列出内容，可按平台过滤
func (s *LibraryService) ListPosts(userID string, q PostListQuery) (Page[models.Post], error) {
	if q.Platform != "" && !q.Platform.Valid() {
		return Page[models.Post]{}, errors.NewValidationError(fmt.Sprintf("invalid platform %q", q.Platform), nil)
	}

	posts, err := s.allPosts(userID)
	if err != nil {
		return Page[models.Post]{}, err
	}
	if q.Platform != "" {
		filtered := posts[:0]
		for _, p := range posts {
			if p.Content.Platform == q.Platform {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	return paginate(posts, q.PageQuery), nil
}

// GetPost 获取单条内容
func (s *LibraryService) GetPost(userID, postID string) (*models.Post, error) {
	if postID == "" || strings.ContainsAny(postID, `/\`) {
		return nil, errors.NewNotFoundError("post not found", nil)
	}

	var post models.Post
	if err := s.storage.LoadJSONFile(userDir(userID), postID+".json", &post); err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("post %s not found", postID), err)
		}
		return nil, errors.NewProcessingError("读取内容失败", err)
	}
	// 文件路径已按用户隔离，这里再确认一次归属
	if post.UserID != userID {
		return nil, errors.NewNotFoundError("post not found", nil)
	}
	return &post, nil
}

// DeletePost 删除内容
func (s *LibraryService) DeletePost(userID, postID string) error {
	if _, err := s.GetPost(userID, postID); err != nil {
		return err
	}
	return s.locks.ExecuteWithLock("library:"+userID, func() error {
		if err := s.storage.DeleteFile(userDir(userID), postID+".json"); err != nil {
			return errors.NewProcessingError("删除内容失败", err)
		}
		return nil
	})
}

// DeleteAll 删除用户的整个内容库（删除用户时调用）
func (s *LibraryService) DeleteAll(userID string) error {
	return s.locks.ExecuteWithLock("library:"+userID, func() error {
		err := s.storage.DeleteDir(userDir(userID))
		if err != nil && !stderrors.Is(err, storage.ErrNotFound) {
			return errors.NewProcessingError("删除内容库失败", err)
		}
		return nil
	})
}

// ExportPost 导出单条内容
func (s *LibraryService) ExportPost(userID, postID string, format models.ExportFormat, loc *i18n.Localizer) (*models.ExportResult, error) {
	post, err := s.GetPost(userID, postID)
	if err != nil {
		return nil, err
	}
	return s.exporter.ExportPost(post, format, loc)
}

// Summary 统计用户内容库
func (s *LibraryService) Summary(userID string) (PostSummary, error) {
	posts, err := s.allPosts(userID)
	if err != nil {
		return PostSummary{}, err
	}

	summary := PostSummary{
		Total:       len(posts),
		ByPlatform:  make(map[string]int),
		ByDirection: make(map[string]int),
	}
	for _, p := range posts {
		summary.ByPlatform[string(p.Content.Platform)]++
		if p.Selection.Direction != "" {
			summary.ByDirection[string(p.Selection.Direction)]++
		}
	}
	if len(posts) > 0 {
		last := posts[0].CreatedAt
		summary.LastSavedAt = &last
	}
	return summary, nil
}

// CountAll 统计所有用户的内容总数（管理员仪表盘）
func (s *LibraryService) CountAll() (int, error) {
	users, err := s.storage.ListDirs(postsDir)
	if err != nil {
		return 0, errors.NewProcessingError("列出内容库失败", err)
	}
	total := 0
	for _, u := range users {
		files, err := s.storage.ListFiles(userDir(u), ".json")
		if err != nil {
			return 0, errors.NewProcessingError("列出内容失败", err)
		}
		total += len(files)
	}
	return total, nil
}
