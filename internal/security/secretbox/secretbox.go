// Package secretbox sella secretos de configuración (DSN, passwords, API
// keys) con AES-256-GCM para poder versionar el YAML sin texto plano.
//
// Formato: "enc:" + base64(nonce) + "|" + base64(ciphertext).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// EnvVar contiene la clave maestra (base64 o hex, 32 bytes).
	EnvVar = "SECRETBOX_MASTER_KEY"
	// Prefix marca un valor sellado.
	Prefix = "enc:"

	keyLength = 32 // AES-256
	sep       = "|"
)

var (
	ErrNoKey     = errors.New(EnvVar + " no seteada; genere una clave con: openssl rand -base64 32")
	ErrMalformed = errors.New("secretbox: formato inválido: esperado enc:base64(nonce)|base64(ciphertext)")
)

// Box sella y abre valores con una clave fija.
type Box struct {
	aead cipher.AEAD
}

// ParseKey acepta base64 (con o sin padding) o hex de 64 caracteres.
func ParseKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == keyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil && len(b) == keyLength {
		return b, nil
	}
	if len(s) == 2*keyLength {
		if b, err := hex.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("secretbox: clave inválida (requiere %d bytes en base64 o hex)", keyLength)
}

func New(key []byte) (*Box, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("secretbox: clave de %d bytes, requiere %d", len(key), keyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// FromEnv arma un Box con la clave de SECRETBOX_MASTER_KEY.
func FromEnv() (*Box, error) {
	raw := strings.TrimSpace(os.Getenv(EnvVar))
	if raw == "" {
		return nil, ErrNoKey
	}
	key, err := ParseKey(raw)
	if err != nil {
		return nil, err
	}
	return New(key)
}

// IsSealed indica si v tiene el prefijo de valor sellado.
func IsSealed(v string) bool { return strings.HasPrefix(v, Prefix) }

// Seal cifra plain con un nonce aleatorio.
func (b *Box) Seal(plain string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plain), nil)
	return Prefix + base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra v. Un valor sin prefijo se devuelve tal cual.
func (b *Box) Open(v string) (string, error) {
	if !IsSealed(v) {
		return v, nil
	}
	nonceB64, ctB64, ok := strings.Cut(strings.TrimPrefix(v, Prefix), sep)
	if !ok {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil || len(nonce) != b.aead.NonceSize() {
		return "", ErrMalformed
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", ErrMalformed
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}
