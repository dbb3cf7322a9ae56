// Package accounts stores master and slave credentials in a YAML file.
// Writes go through a temp file and rename so readers never see a partial
// file.
package accounts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/JabirHus/NCTB/internal/models"
	"gopkg.in/yaml.v3"
)

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the stored accounts. A missing file is an empty set.
func (s *Store) Load() (models.Accounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save stores creds as the master (replacing any previous one) or adds it as
// a slave.
func (s *Store) Save(kind models.AccountKind, creds models.Credentials) error {
	if creds.Login <= 0 {
		return fmt.Errorf("%w: login must be positive", exception.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accts, err := s.read()
	if err != nil {
		return err
	}

	switch kind {
	case models.AccountMaster:
		if indexOf(accts.Slaves, creds.Login) >= 0 {
			return fmt.Errorf("login %d is a slave: %w", creds.Login, exception.ErrAccountExists)
		}
		accts.Master = &creds
	case models.AccountSlave:
		if accts.Master != nil && accts.Master.Login == creds.Login {
			return fmt.Errorf("login %d is the master: %w", creds.Login, exception.ErrAccountExists)
		}
		if indexOf(accts.Slaves, creds.Login) >= 0 {
			return fmt.Errorf("slave %d: %w", creds.Login, exception.ErrAccountExists)
		}
		accts.Slaves = append(accts.Slaves, creds)
	default:
		return fmt.Errorf("%w: unknown account kind %q", exception.ErrInvalidArgument, kind)
	}
	return s.write(accts)
}

func (s *Store) Remove(kind models.AccountKind, login int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accts, err := s.read()
	if err != nil {
		return err
	}

	switch kind {
	case models.AccountMaster:
		if accts.Master == nil || accts.Master.Login != login {
			return fmt.Errorf("master %d: %w", login, exception.ErrAccountNotFound)
		}
		accts.Master = nil
	case models.AccountSlave:
		i := indexOf(accts.Slaves, login)
		if i < 0 {
			return fmt.Errorf("slave %d: %w", login, exception.ErrAccountNotFound)
		}
		accts.Slaves = append(accts.Slaves[:i], accts.Slaves[i+1:]...)
	default:
		return fmt.Errorf("%w: unknown account kind %q", exception.ErrInvalidArgument, kind)
	}
	return s.write(accts)
}

// Clear removes every stored account.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(models.Accounts{})
}

func (s *Store) read() (models.Accounts, error) {
	var accts models.Accounts
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return accts, nil
	}
	if err != nil {
		return accts, fmt.Errorf("%w: read accounts: %v", exception.ErrPersistence, err)
	}
	if err := yaml.Unmarshal(data, &accts); err != nil {
		return accts, fmt.Errorf("%w: parse %s: %v", exception.ErrConfiguration, s.path, err)
	}
	return accts, nil
}

func (s *Store) write(accts models.Accounts) error {
	if accts.Slaves == nil {
		accts.Slaves = []models.Credentials{}
	}
	data, err := yaml.Marshal(accts)
	if err != nil {
		return fmt.Errorf("%w: encode accounts: %v", exception.ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: accounts dir: %v", exception.ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(dir, ".accounts-*.yaml")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", exception.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write accounts: %v", exception.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync accounts: %v", exception.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close accounts: %v", exception.ErrPersistence, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("%w: chmod accounts: %v", exception.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace accounts: %v", exception.ErrPersistence, err)
	}
	return nil
}

func indexOf(slaves []models.Credentials, login int64) int {
	for i, c := range slaves {
		if c.Login == login {
			return i
		}
	}
	return -1
}
