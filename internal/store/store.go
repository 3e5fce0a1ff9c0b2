// Package store persists named LDAP connections in a YAML file.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/isometry/terraform-provider-ldapexplorer/internal/ldap"
)

const (
	// ConnectionsKey is the top-level YAML key holding the connection list.
	ConnectionsKey = "connections"

	maxFileSize = 1024 * 1024 // 1MB
)

// DefaultPath returns ~/.config/ldap-explorer/connections.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ldap-explorer", "connections.yaml"), nil
}

// FileStore is a ConnectionStore backed by a YAML file. Every successful
// Add, Edit or Remove rewrites the whole file.
type FileStore struct {
	path   string
	logger ldap.Logger

	mu    sync.Mutex
	conns *ldap.Connections
}

var _ ldap.ConnectionStore = (*FileStore)(nil)

// Load reads the connection file at path. A missing file yields an empty store.
//
// The file holds bind passwords, so it must not be readable by group or others
// (0600 or 0400) and must not exceed 1MB.
func Load(path string, logger ldap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = ldap.NopLogger{}
	}

	items, err := readConnections(path)
	if err != nil {
		return nil, err
	}

	logger.Debug("Loaded connections", map[string]any{
		"path":  path,
		"count": len(items),
	})

	return &FileStore{
		path:   path,
		logger: logger,
		conns:  ldap.NewConnections(items, logger),
	}, nil
}

// Parse decodes a YAML document of the form {connections: [...]} and applies defaults.
func Parse(content []byte) ([]ldap.ConnectionConfig, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse connections: %w", err)
	}

	var items []ldap.ConnectionConfig
	if err := k.Unmarshal(ConnectionsKey, &items); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}

	for i := range items {
		if err := items[i].ApplyDefaults(); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// Marshal encodes connections as a YAML document accepted by Parse.
func Marshal(items []ldap.ConnectionConfig) ([]byte, error) {
	records := make([]map[string]any, 0, len(items))
	for _, cfg := range items {
		records = append(records, map[string]any{
			"name":     cfg.Name,
			"protocol": cfg.Protocol,
			"host":     cfg.Host,
			"port":     cfg.Port,
			"binddn":   cfg.BindDN,
			"bindpwd":  cfg.BindPassword,
			"basedn":   cfg.BaseDN,
			"timeout":  cfg.Timeout,
		})
	}

	k := koanf.New(".")
	if err := k.Set(ConnectionsKey, records); err != nil {
		return nil, fmt.Errorf("failed to encode connections: %w", err)
	}

	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return nil, fmt.Errorf("failed to encode connections: %w", err)
	}
	return data, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// ListAll returns all connections in file order.
func (s *FileStore) ListAll() []ldap.ConnectionConfig {
	return s.current().ListAll()
}

// FindByName returns the first connection named name.
func (s *FileStore) FindByName(name string) (ldap.ConnectionConfig, *ldap.AmbiguousNameWarning, error) {
	return s.current().FindByName(name)
}

// Add validates and appends a connection, then saves the file.
func (s *FileStore) Add(cfg ldap.ConnectionConfig) error {
	if err := cfg.ApplyDefaults(); err != nil {
		return err
	}
	if err := cfg.ValidateLiterals(); err != nil {
		return err
	}
	return s.update(func(c *ldap.Connections) error { return c.Add(cfg) })
}

// Edit validates the replacement, swaps it for the first connection named
// existingName and saves the file.
func (s *FileStore) Edit(existingName string, replacement ldap.ConnectionConfig) error {
	if err := replacement.ApplyDefaults(); err != nil {
		return err
	}
	if err := replacement.ValidateLiterals(); err != nil {
		return err
	}
	return s.update(func(c *ldap.Connections) error { return c.Edit(existingName, replacement) })
}

// Remove deletes the first connection named name and saves the file.
func (s *FileStore) Remove(name string) error {
	return s.update(func(c *ldap.Connections) error { return c.Remove(name) })
}

func (s *FileStore) current() *ldap.Connections {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// update applies fn to a copy and only swaps it in once the file is written.
func (s *FileStore) update(fn func(*ldap.Connections) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := ldap.NewConnections(s.conns.ListAll(), s.logger)
	if err := fn(next); err != nil {
		return err
	}

	if err := writeConnections(s.path, next.ListAll()); err != nil {
		return err
	}

	s.conns = next
	s.logger.Info("Saved connections", map[string]any{
		"path":  s.path,
		"count": len(next.ListAll()),
	})
	return nil
}

func readConnections(path string) ([]ldap.ConnectionConfig, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open connections file: %w", err)
	}
	defer f.Close()

	// Validate using the open descriptor to avoid a TOCTOU race
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat connections file: %w", err)
	}
	if err := validateFileProperties(info); err != nil {
		return nil, fmt.Errorf("connections file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read connections file: %w", err)
	}

	items, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

func writeConnections(path string, items []ldap.ConnectionConfig) error {
	data, err := Marshal(items)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".connections-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write connections: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write connections: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace connections file: %w", err)
	}
	return nil
}

// validateFileProperties checks file permissions and size.
func validateFileProperties(info os.FileInfo) error {
	// Skip on Windows (different permission model)
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure connections file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxFileSize {
		return fmt.Errorf("connections file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	return nil
}
