package services

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"notekeeper/internal/notes/ports/services"
)

// LinkTokenBytes - длина токена публичной ссылки до кодирования.
const LinkTokenBytes = 32

const errCtxGenerateToken = "generating link token"

// LinkTokenService выпускает токены публичных ссылок. В хранилище
// попадает только BLAKE2b-256 от токена.
type LinkTokenService struct {
	random func([]byte) (int, error)
}

// NewLinkTokenService создает генератор токенов на crypto/rand.
func NewLinkTokenService() services.LinkTokens {
	return &LinkTokenService{random: rand.Read}
}

// Generate возвращает токен в base64url и его хеш.
func (s *LinkTokenService) Generate() (string, string, error) {
	buf := make([]byte, LinkTokenBytes)
	if _, err := s.random(buf); err != nil {
		return "", "", fmt.Errorf("%s: %w", errCtxGenerateToken, err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, s.Hash(token), nil
}

// Hash возвращает hex BLAKE2b-256 от токена.
func (s *LinkTokenService) Hash(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
