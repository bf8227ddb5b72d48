// internal/utils/crypto.go
package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// deriveKey 把任意长度的口令折叠为 32 字节 AES-256 密钥
func deriveKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

// newSecretAEAD 配置密钥加解密共用的 AES-GCM 实例
func newSecretAEAD(key string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(key))
	if err != nil {
		return nil, fmt.Errorf("secret cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt 加密配置中的密钥字段，输出 base64(nonce||密文)
func Encrypt(plaintext, key string) (string, error) {
	aead, err := newSecretAEAD(key)
	if err != nil {
		return "", err
	}
	sealed := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, sealed); err != nil {
		return "", fmt.Errorf("secret nonce: %w", err)
	}
	sealed = aead.Seal(sealed, sealed, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 是 Encrypt 的逆操作；密钥不对时返回错误而不是乱码
func Decrypt(encoded, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("secret encoding: %w", err)
	}
	aead, err := newSecretAEAD(key)
	if err != nil {
		return "", err
	}
	n := aead.NonceSize()
	if len(raw) < n+aead.Overhead() {
		return "", fmt.Errorf("secret payload too short")
	}
	plain, err := aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("secret decrypt: %w", err)
	}
	return string(plain), nil
}

// GenerateSecureKey 生成令牌签名用的随机密钥（未配置 AUTH_SECRET_KEY 时使用）
func GenerateSecureKey(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("key length must be positive, got %d", n)
	}
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}
