package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/dmitrijs2005/metaltracker/internal/common"
)

// apiKeyRandomBytes is the entropy of a key; the hex body is twice as long.
const apiKeyRandomBytes = 24

// APIKeyDisplayLength is how many leading characters are stored for display.
const APIKeyDisplayLength = len(common.APIKeyPrefix) + 8

// KeyHasher derives the lookup digest of an API key: hex(HMAC-SHA256(pepper,
// key)). The digest is deterministic so it can be looked up by a unique
// index, and useless without the server's pepper.
type KeyHasher struct {
	pepper []byte
}

func NewKeyHasher(pepper string) (*KeyHasher, error) {
	if pepper == "" {
		return nil, errors.New("api key pepper is empty")
	}
	return &KeyHasher{pepper: []byte(pepper)}, nil
}

func (h *KeyHasher) Hash(plaintext string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateAPIKey returns a fresh plaintext key and its display prefix.
func GenerateAPIKey() (plaintext, prefix string, err error) {
	body, err := common.MakeRandHexString(apiKeyRandomBytes)
	if err != nil {
		return "", "", err
	}
	plaintext = common.APIKeyPrefix + body
	return plaintext, plaintext[:APIKeyDisplayLength], nil
}

// LooksLikeAPIKey is a cheap shape check done before any hashing.
func LooksLikeAPIKey(s string) bool {
	return strings.HasPrefix(s, common.APIKeyPrefix) &&
		len(s) == len(common.APIKeyPrefix)+2*apiKeyRandomBytes
}
