// internal/storage/file_storage.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotFound 文件或目录不存在
var ErrNotFound = errors.New("storage: not found")

const (
	defaultCacheSize   = 256
	defaultCacheExpiry = 5 * time.Minute
)

// FileStorage 提供文件存储服务：原子写入、文件级读写锁、LRU 读缓存
type FileStorage struct {
	BaseDir string

	// 并发控制
	fileLocks sync.Map // 文件级别锁 path -> *sync.RWMutex

	cache       *lru.Cache[string, cacheEntry]
	cacheExpiry time.Duration
}

// cacheEntry 缓存条目
type cacheEntry struct {
	data     []byte
	storedAt time.Time
}

// NewFileStorage 创建文件存储服务
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}

	cache, err := lru.New[string, cacheEntry](defaultCacheSize)
	if err != nil {
		return nil, err
	}

	return &FileStorage{
		BaseDir:     baseDir,
		cache:       cache,
		cacheExpiry: defaultCacheExpiry,
	}, nil
}

// resolve 拼出绝对路径并拒绝跳出 BaseDir 的路径
func (fs *FileStorage) resolve(parts ...string) (string, error) {
	full := filepath.Join(append([]string{fs.BaseDir}, parts...)...)
	rel, err := filepath.Rel(fs.BaseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("非法路径: %s", filepath.Join(parts...))
	}
	return full, nil
}

// 获取文件锁
func (fs *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// SaveTextFile 原子性保存文件（先写临时文件再 rename）
func (fs *FileStorage) SaveTextFile(dirPath, filename string, content []byte) error {
	fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return err
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("保存临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("保存文件失败: %w", err)
	}

	fs.cache.Remove(fullPath)
	return nil
}

// SaveJSONFile 保存JSON文件
func (fs *FileStorage) SaveJSONFile(dirPath, filename string, data interface{}) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	return fs.SaveTextFile(dirPath, filename, content)
}

// LoadTextFile 读取文件，命中且未过期时直接返回缓存
func (fs *FileStorage) LoadTextFile(dirPath, filename string) ([]byte, error) {
	fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return nil, err
	}

	if data, ok := fs.cached(fullPath); ok {
		return data, nil
	}

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(dirPath, filename))
		}
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}

	fs.cache.Add(fullPath, cacheEntry{data: content, storedAt: time.Now()})
	return content, nil
}

func (fs *FileStorage) cached(fullPath string) ([]byte, bool) {
	entry, ok := fs.cache.Get(fullPath)
	if !ok {
		return nil, false
	}
	if time.Since(entry.storedAt) > fs.cacheExpiry {
		fs.cache.Remove(fullPath)
		return nil, false
	}
	return entry.data, true
}

// LoadJSONFile 读取并解析JSON文件
func (fs *FileStorage) LoadJSONFile(dirPath, filename string, v interface{}) error {
	content, err := fs.LoadTextFile(dirPath, filename)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("解析JSON失败: %w", err)
	}
	return nil
}

// FileExists 检查文件是否存在
func (fs *FileStorage) FileExists(dirPath, filename string) bool {
	fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}

// DeleteFile 删除文件
func (fs *FileStorage) DeleteFile(dirPath, filename string) error {
	fullPath, err := fs.resolve(dirPath, filename)
	if err != nil {
		return err
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(dirPath, filename))
		}
		return fmt.Errorf("删除文件失败: %w", err)
	}

	fs.cache.Remove(fullPath)
	return nil
}

// DeleteDir 删除目录及其内容
func (fs *FileStorage) DeleteDir(dirPath string) error {
	fullPath, err := fs.resolve(dirPath)
	if err != nil {
		return err
	}
	if fullPath == filepath.Clean(fs.BaseDir) {
		return fmt.Errorf("不能删除存储根目录")
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, dirPath)
	}
	if err := os.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("删除目录失败: %w", err)
	}

	// 清除目录相关的缓存项
	prefix := fullPath + string(filepath.Separator)
	for _, key := range fs.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			fs.cache.Remove(key)
		}
	}
	return nil
}

// ListFiles 列出目录下指定扩展名的文件（排序）；目录不存在时返回空
func (fs *FileStorage) ListFiles(dirPath, ext string) ([]string, error) {
	fullPath, err := fs.resolve(dirPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ext) {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// ListDirs 列出目录下的所有子目录
func (fs *FileStorage) ListDirs(dirPath string) ([]string, error) {
	fullPath, err := fs.resolve(dirPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
