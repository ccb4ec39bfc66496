package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Username: "alice",
		Password: "correct-horse-battery",
		SiteURL:  "https://profiles.example.com",
	}
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("alice")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.Password != account.Password {
		t.Errorf("Password mismatch: got %s, want %s", retrieved.Password, account.Password)
	}
	if retrieved.SiteURL != account.SiteURL {
		t.Errorf("SiteURL mismatch: got %s, want %s", retrieved.SiteURL, account.SiteURL)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account, got %d", len(accounts))
	}

	if err := manager.Delete("alice"); err != nil {
		t.Fatalf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("alice"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Account{Password: "x"}); err == nil {
		t.Error("Expected error for missing username")
	}
	if err := manager.Store(&Account{Username: "alice"}); err == nil {
		t.Error("Expected error for missing password")
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("locked")
	backup := NewMockStore()
	manager := NewManagerWithStores(broken, backup)

	if err := manager.Store(&Account{Username: "alice", Password: "secret"}); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if !backup.Exists("alice") {
		t.Error("Account should land in the second store")
	}

	broken.StoreError = nil
	broken.RetrieveError = errors.New("locked")
	if _, err := manager.Retrieve("alice"); err != nil {
		t.Errorf("Retrieve should fall back to the second store: %v", err)
	}
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	now := time.Now()
	_ = older.Store(&Account{Username: "alice", Password: "old", LastModified: now.Add(-time.Hour)})
	_ = newer.Store(&Account{Username: "alice", Password: "new", LastModified: now})
	_ = newer.Store(&Account{Username: "bob", Password: "pw", LastModified: now.Add(-2 * time.Hour)})

	accounts, err := NewManagerWithStores(older, newer).List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Username != "alice" || accounts[0].Password != "new" {
		t.Errorf("Expected newest alice first, got %s/%s", accounts[0].Username, accounts[0].Password)
	}
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvUsername, "envuser")
	t.Setenv(EnvPassword, "envpass")

	mock := NewMockStore()
	_ = mock.Store(&Account{Username: "alice", Password: "secret", LastModified: time.Now()})
	manager := NewManagerWithStores(mock, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("Failed to retrieve default: %v", err)
	}
	if account.Username != "envuser" {
		t.Errorf("Expected environment account, got %s", account.Username)
	}
}

func TestRetrieveDefaultEmpty(t *testing.T) {
	manager, _ := NewMockManager()
	if _, err := manager.RetrieveDefault(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Username: "alice", Password: "correct-horse-battery"}
	sanitized := SanitizeAccount(account)

	if sanitized.Password != "co...ry" {
		t.Errorf("Password should be masked, got %s", sanitized.Password)
	}
	if sanitized.Username != account.Username {
		t.Error("Username should not be masked")
	}
	if SanitizeAccount(&Account{Password: "short"}).Password != "******" {
		t.Error("Short passwords should be fully masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("Expected nil for nil account")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := &Account{Username: "encrypted_user", Password: "encrypted_password"}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("encrypted_user")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.Password != account.Password {
		t.Error("Password mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("encrypted_password")) {
		t.Error("File contains plaintext password")
	}

	if err := store.Delete("encrypted_user"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be removed with the last account")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	t.Setenv(EnvPassphrase, "first")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Account{Username: "alice", Password: "secret"}); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvPassphrase, "second")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("alice"); err == nil || errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected decryption failure, got %v", err)
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Account{Username: "alice", Password: "secret"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".passphrase")); err != nil {
		t.Errorf("Expected generated passphrase file: %v", err)
	}

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Exists("alice") {
		t.Error("Reopened store should read with the saved passphrase")
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvUsername, "env_user")
	t.Setenv(EnvPassword, "env_pass")
	t.Setenv(EnvSiteURL, "https://profiles.example.com")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.Username != "env_user" || account.Password != "env_pass" {
		t.Errorf("Unexpected account %s/%s", account.Username, account.Password)
	}
	if account.SiteURL != "https://profiles.example.com" {
		t.Errorf("SiteURL mismatch: got %s", account.SiteURL)
	}

	if _, err := store.Retrieve("someone_else"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound for other user, got %v", err)
	}
	if err := store.Store(&Account{}); !errors.Is(err, ErrStoreUnavailable) {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestEnvironmentStoreIncomplete(t *testing.T) {
	t.Setenv(EnvUsername, "env_user")
	t.Setenv(EnvPassword, "")

	accounts, err := NewEnvironmentStore().List()
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected no accounts without a password, got %d", len(accounts))
	}
}
