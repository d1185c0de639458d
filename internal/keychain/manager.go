// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for sqlbench.
// It stores the secrets the CLI needs between runs (the Query Service API token
// and a direct-mode database DSN) in the OS credential store so they never land
// in the configuration file.
package keychain

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when a secret has never been stored.
var ErrNotFound = errors.New("secret not found in keychain")

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "sqlbench"

// Keys used for storing secrets in the OS keychain.
const (
	KeyAPIToken = "api_token"
	KeyDSN      = "db_dsn"
)

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing wraps an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only; there is no file fallback.
func openRing() (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName: ServiceName,
		PassPrefix:  ServiceName,
	}

	switch runtime.GOOS {
	case "darwin":
		cfg.AllowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		cfg.AllowedBackends = []keyring.BackendType{keyring.WinCredBackend}
		cfg.WinCredPrefix = ServiceName
	case "linux", "freebsd", "openbsd":
		cfg.AllowedBackends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
		cfg.LibSecretCollectionName = "login"
	default:
		return nil, errors.New("secure storage not supported on " + runtime.GOOS)
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. Install 'pass' as a fallback: brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}
	return ring, nil
}

func (m *Manager) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (m *Manager) get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(it.Data))
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Manager) remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if err := m.ring.Remove(k); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return err
		}
	}
	return nil
}

// SaveAPIToken stores the Query Service bearer token.
func (m *Manager) SaveAPIToken(token string) error { return m.set(KeyAPIToken, token) }

// LoadAPIToken returns the stored bearer token or ErrNotFound.
func (m *Manager) LoadAPIToken() (string, error) { return m.get(KeyAPIToken) }

// SaveDSN stores the direct-mode database DSN.
func (m *Manager) SaveDSN(dsn string) error { return m.set(KeyDSN, dsn) }

// LoadDSN returns the stored DSN or ErrNotFound.
func (m *Manager) LoadDSN() (string, error) { return m.get(KeyDSN) }

// ClearAPIToken removes the bearer token. Removing a missing secret is not an error.
func (m *Manager) ClearAPIToken() error { return m.remove(KeyAPIToken) }

// ClearDSN removes the DSN.
func (m *Manager) ClearDSN() error { return m.remove(KeyDSN) }

// ClearAll removes every secret sqlbench stores.
func (m *Manager) ClearAll() error { return m.remove(KeyAPIToken, KeyDSN) }
