package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secretDocument(value string) *domain.Document {
	return &domain.Document{
		Name: "vault",
		Root: &domain.Node{Name: "Sequence", Children: []*domain.Node{
			{ID: "2", Name: "Log", Args: map[string]any{"message": value}},
		}},
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(underlyingStore)

	ctx := context.Background()
	if err := secureStore.Write(ctx, "vault.json", secretDocument("my-secret-sauce")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// The underlying store only sees the envelope.
	stored, err := underlyingStore.Read(ctx, "vault.json")
	if err != nil {
		t.Fatalf("Underlying read failed: %v", err)
	}
	if stored.Name != "vault" {
		t.Errorf("Expected the name to stay readable, got %q", stored.Name)
	}
	if stored.Root.Name != middleware.EnvelopeNode || len(stored.Root.Children) != 0 {
		t.Fatalf("Expected an envelope root, got %+v", stored.Root)
	}
	if _, ok := stored.Root.Args["__encrypted__"]; !ok {
		t.Fatal("Expected __encrypted__ argument in the envelope")
	}

	loaded, err := secureStore.Read(ctx, "vault.json")
	if err != nil {
		t.Fatalf("Read via middleware failed: %v", err)
	}
	if got := loaded.Root.Children[0].Args["message"]; got != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", got)
	}

	paths, _ := secureStore.List(ctx)
	if len(paths) != 1 || paths[0] != "vault.json" {
		t.Errorf("List should pass through, got %v", paths)
	}
	if _, err := secureStore.Stat(ctx, "vault.json"); err != nil {
		t.Errorf("Stat should pass through: %v", err)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)
	if err := secureStoreOld.Write(ctx, "vault.json", secretDocument("encrypted-with-old-key")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Read(ctx, "vault.json")
	if err != nil {
		t.Fatalf("Read with rotated key failed: %v", err)
	}
	if loaded.Root.Children[0].Args["message"] != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	if err := secureStoreNew.Write(ctx, "vault.json", secretDocument("encrypted-with-new-key")); err != nil {
		t.Fatalf("Write with new key failed: %v", err)
	}
	if _, err := secureStoreOld.Read(ctx, "vault.json"); err == nil {
		t.Error("Expected failure when reading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_PlainDocument(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Write(ctx, "plain.json", secretDocument("visible")); err != nil {
		t.Fatal(err)
	}

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	_, err := secureStore.Read(ctx, "plain.json")
	if !errors.Is(err, domain.ErrSerialization) {
		t.Errorf("Expected a serialization error for a plain document, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}

func TestParseKeys(t *testing.T) {
	active := base64.StdEncoding.EncodeToString(generateKey(t))
	old := base64.StdEncoding.EncodeToString(generateKey(t))

	cfg, err := middleware.ParseKeys(active, old)
	if err != nil {
		t.Fatalf("ParseKeys failed: %v", err)
	}
	if len(cfg.ActiveKey) != 32 || len(cfg.FallbackKeys) != 1 {
		t.Errorf("Unexpected config: %d active bytes, %d fallbacks", len(cfg.ActiveKey), len(cfg.FallbackKeys))
	}

	if _, err := middleware.ParseKeys(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("Expected an error for a short key")
	}
	if _, err := middleware.ParseKeys("%%%"); err == nil {
		t.Error("Expected an error for invalid base64")
	}
}
