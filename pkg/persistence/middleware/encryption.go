package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// EnvelopeNode is the root node name of an encrypted document.
const EnvelopeNode = "Encrypted"

const envelopeArg = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt.
	FallbackKeys [][]byte
}

// ParseKeys decodes base64 keys into an EncryptionConfig. The first key is
// the active one.
func ParseKeys(active string, fallback ...string) (EncryptionConfig, error) {
	var cfg EncryptionConfig
	key, err := base64.StdEncoding.DecodeString(active)
	if err != nil {
		return cfg, fmt.Errorf("active key: %w", err)
	}
	if len(key) != 32 {
		return cfg, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(key))
	}
	cfg.ActiveKey = key
	for i, f := range fallback {
		k, err := base64.StdEncoding.DecodeString(f)
		if err != nil {
			return cfg, fmt.Errorf("fallback key %d: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, k)
	}
	return cfg, nil
}

type encryptionMiddleware struct {
	next   ports.DocumentStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that stores each document as
// an AES-GCM sealed envelope. Only the document name stays readable.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.DocumentStore) ports.DocumentStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Write(ctx context.Context, path string, doc *domain.Document) error {
	plainText, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt document: %w", err)
	}

	envelope := &domain.Document{
		Name: doc.Name,
		Root: &domain.Node{
			Name: EnvelopeNode,
			Args: map[string]any{envelopeArg: base64.StdEncoding.EncodeToString(ciphertext)},
		},
	}
	return m.next.Write(ctx, path, envelope)
}

func (m *encryptionMiddleware) Read(ctx context.Context, path string) (*domain.Document, error) {
	envelope, err := m.next.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	var encoded string
	if envelope.Root != nil && envelope.Root.Name == EnvelopeNode {
		encoded, _ = envelope.Root.Args[envelopeArg].(string)
	}
	if encoded == "" {
		// Fail secure: plain documents are not accepted once encryption is on.
		return nil, fmt.Errorf("%w: %s is missing its encrypted envelope", domain.ErrSerialization, path)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode ciphertext: %v", domain.ErrSerialization, err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", path, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(plainText, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	return &doc, nil
}

func (m *encryptionMiddleware) Stat(ctx context.Context, path string) (time.Time, error) {
	return m.next.Stat(ctx, path)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{activeKey}, fallbackKeys...) {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
