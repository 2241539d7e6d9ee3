// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package jsonfile provides a file-backed implementation of the
// passkey.UserStore interface. Each user record is stored as one JSON
// file under a root directory, written atomically via a temp file and
// rename. It is thread-safe within a single process.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/veridian-labs/passkey-server/pkg/passkey"
)

const (
	// Directory permissions (owner rwx only)
	dirPerms = 0700

	// Record file permissions (owner rw only); records hold public keys
	// and usage metadata, no secrets, but there is no reason to share.
	filePerms = 0600

	fileSuffix = ".json"
)

// Store is a file-backed passkey.UserStore. Usernames are already
// normalized and character-restricted by the service, so they are safe to
// use as file names directly.
type Store struct {
	mu      sync.RWMutex
	rootDir string
}

// New creates a Store rooted at rootDir, creating the directory with 0700
// permissions if it does not exist.
func New(rootDir string) (*Store, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("jsonfile storage: root directory cannot be empty")
	}

	if err := os.MkdirAll(rootDir, dirPerms); err != nil {
		return nil, fmt.Errorf("jsonfile storage: failed to create root directory: %w", err)
	}

	return &Store{rootDir: rootDir}, nil
}

// Get retrieves a user record by username. Returns
// passkey.ErrUserNotFound if no record exists.
func (s *Store) Get(_ context.Context, username string) (*passkey.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(username)
}

// Upsert returns the existing user or creates and persists a new one. A
// non-empty displayName updates the stored display name.
func (s *Store) Upsert(_ context.Context, username, displayName string) (*passkey.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.read(username)
	if err == nil {
		if displayName != "" && displayName != user.DisplayName {
			user.DisplayName = displayName
			if err := s.write(user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !passkey.IsUserNotFound(err) {
		return nil, err
	}

	user = passkey.NewUser(username, displayName)
	if err := s.write(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Save persists a user record.
func (s *Store) Save(_ context.Context, user *passkey.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(user)
}

// List returns all stored user records.
func (s *Store) List(_ context.Context) ([]*passkey.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("jsonfile storage: failed to list records: %w", err)
	}

	users := make([]*passkey.User, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		user, err := s.read(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) path(username string) string {
	return filepath.Join(s.rootDir, username+fileSuffix)
}

func (s *Store) read(username string) (*passkey.User, error) {
	data, err := os.ReadFile(s.path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, passkey.ErrUserNotFound
		}
		return nil, fmt.Errorf("jsonfile storage: failed to read record %q: %w", username, err)
	}

	var user passkey.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("jsonfile storage: corrupt record %q: %w", username, err)
	}
	return &user, nil
}

// write marshals the record and swaps it into place with a rename so a
// crash mid-write never leaves a truncated record behind.
func (s *Store) write(user *passkey.User) error {
	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile storage: failed to marshal record %q: %w", user.Username, err)
	}

	target := s.path(user.Username)
	tmp, err := os.CreateTemp(s.rootDir, user.Username+".tmp-*")
	if err != nil {
		return fmt.Errorf("jsonfile storage: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("jsonfile storage: failed to write record %q: %w", user.Username, err)
	}
	if err := tmp.Chmod(filePerms); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("jsonfile storage: failed to set permissions on %q: %w", user.Username, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("jsonfile storage: failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("jsonfile storage: failed to store record %q: %w", user.Username, err)
	}
	return nil
}
