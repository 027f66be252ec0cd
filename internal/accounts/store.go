// Package accounts persists account identities in a JSON file and watches it
// for changes made by other processes.
package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// ErrAccountNotFound is returned for unknown account IDs.
var ErrAccountNotFound = errors.New("account not found")

const fileVersion = 1

// File is the on-disk layout.
type File struct {
	CurrentAccountID string           `json:"currentAccountId,omitempty"`
	Accounts         []models.Account `json:"accounts"`
	Version          int              `json:"version"`
}

// Event represents an account store event.
type Event struct {
	Error   error
	Account *models.Account
	Type    EventType
}

// EventType defines the type of account event.
type EventType int

const (
	EventAccountsLoaded EventType = iota
	// EventAccountsChanged means the file was changed by someone else.
	EventAccountsChanged
	EventAccountAdded
	EventAccountUpdated
	EventAccountDeleted
	EventCurrentChanged
	EventError
)

// Store is the single writer of the accounts file. Accounts keep insertion
// order.
type Store struct {
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	now           func() time.Time
	filePath      string
	currentID     string
	accounts      []models.Account
	lastSaved     []byte
	mu            sync.RWMutex
	closeOnce     sync.Once
}

// New opens (or creates) the accounts file at filePath and starts watching it.
func New(filePath string) (*Store, error) {
	if filePath == "" {
		return nil, errors.New("accounts file path is empty")
	}

	s := &Store{
		accounts:  make([]models.Account, 0),
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create accounts directory: %w", err)
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load accounts: %w", err)
		}
		s.mu.Lock()
		err = s.saveLocked()
		s.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to create accounts file: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventAccountsLoaded})
	return s, nil
}

// Events returns the event channel for subscribing to account changes.
func (s *Store) Events() <-chan Event {
	return s.eventChan
}

// Path returns the accounts file path.
func (s *Store) Path() string {
	return s.filePath
}

// List returns copies of all accounts in insertion order.
func (s *Store) List() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Account, len(s.accounts))
	for i := range s.accounts {
		out[i] = s.accounts[i].Clone()
	}
	return out
}

// Count returns the number of accounts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// Get returns a copy of the account with id.
func (s *Store) Get(id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.accounts[i].Clone(), nil
	}
	return models.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
}

// Current returns the active account, or nil when none is set.
func (s *Store) Current() *models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(s.currentID); i >= 0 {
		acc := s.accounts[i].Clone()
		return &acc
	}
	return nil
}

// CurrentID returns the active account ID, possibly empty.
func (s *Store) CurrentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// SetCurrent marks id as the active account.
func (s *Store) SetCurrent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	prevID, prevUsed := s.currentID, s.accounts[i].LastUsed
	s.currentID = id
	s.accounts[i].LastUsed = s.now()
	if err := s.saveLocked(); err != nil {
		s.currentID, s.accounts[i].LastUsed = prevID, prevUsed
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	acc := s.accounts[i].Clone()
	s.sendEvent(Event{Type: EventCurrentChanged, Account: &acc})
	return nil
}

// Add inserts an account, or refreshes the credentials of the existing
// account with the same email. The stored account is returned.
func (s *Store) Add(account models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if account.Email == "" {
		account.Email = account.Token.Email
	}

	for i := range s.accounts {
		if account.Email == "" || !strings.EqualFold(s.accounts[i].Email, account.Email) {
			continue
		}
		prev := s.accounts[i]
		updated := prev.Clone()
		updated.Token = account.Token
		if account.Name != "" {
			updated.Name = account.Name
		}
		if account.ProjectID != "" {
			updated.ProjectID = account.ProjectID
		}
		s.accounts[i] = updated
		if err := s.saveLocked(); err != nil {
			s.accounts[i] = prev
			return models.Account{}, fmt.Errorf("failed to save accounts: %w", err)
		}
		s.sendEvent(Event{Type: EventAccountUpdated, Account: &updated})
		return updated.Clone(), nil
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.AddedAt.IsZero() {
		account.AddedAt = s.now()
	}

	s.accounts = append(s.accounts, account)
	if err := s.saveLocked(); err != nil {
		s.accounts = s.accounts[:len(s.accounts)-1]
		return models.Account{}, fmt.Errorf("failed to save accounts: %w", err)
	}

	added := account.Clone()
	s.sendEvent(Event{Type: EventAccountAdded, Account: &added})
	return account, nil
}

// Delete removes an account. Deleting the active account leaves no account
// active.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	prevAccounts := append([]models.Account(nil), s.accounts...)
	prevCurrent := s.currentID
	deleted := s.accounts[i]

	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	if s.currentID == id {
		s.currentID = ""
	}

	if err := s.saveLocked(); err != nil {
		s.accounts, s.currentID = prevAccounts, prevCurrent
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	s.sendEvent(Event{Type: EventAccountDeleted, Account: &deleted})
	return nil
}

// UpdateToken replaces the token of an account.
func (s *Store) UpdateToken(id string, token models.TokenData) error {
	return s.update(id, func(acc *models.Account) {
		if token.Email == "" {
			token.Email = acc.Token.Email
		}
		acc.Token = token
	})
}

// UpdateQuota replaces the cached quota of an account.
func (s *Store) UpdateQuota(id string, q *models.Quota) error {
	return s.update(id, func(acc *models.Account) {
		if q == nil {
			acc.Quota = nil
			return
		}
		c := q.Clone()
		acc.Quota = &c
	})
}

func (s *Store) update(id string, mutate func(*models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}

	prev := s.accounts[i]
	updated := prev.Clone()
	mutate(&updated)
	s.accounts[i] = updated

	if err := s.saveLocked(); err != nil {
		s.accounts[i] = prev
		return fmt.Errorf("failed to save accounts: %w", err)
	}

	acc := updated.Clone()
	s.sendEvent(Event{Type: EventAccountUpdated, Account: &acc})
	return nil
}

func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			return i
		}
	}
	return -1
}

// parseFile accepts the current layout and a bare array of accounts.
func parseFile(data []byte) (File, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return File{Version: fileVersion}, nil
	}

	if trimmed[0] == '[' {
		var list []models.Account
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return File{}, fmt.Errorf("failed to parse accounts file: %w", err)
		}
		return File{Accounts: list, Version: fileVersion}, nil
	}

	var f File
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	return f, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	f, err := parseFile(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(f)
	s.lastSaved = data
	return nil
}

func (s *Store) applyLocked(f File) {
	s.accounts = f.Accounts
	if s.accounts == nil {
		s.accounts = make([]models.Account, 0)
	}
	s.currentID = f.CurrentAccountID
	if s.indexLocked(s.currentID) < 0 {
		s.currentID = ""
	}
}

// saveLocked writes the file atomically (must hold lock).
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(File{
		Version:          fileVersion,
		Accounts:         s.accounts,
		CurrentAccountID: s.currentID,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.lastSaved = data
	return nil
}

// startWatcher starts the file system watcher.
func (s *Store) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory: the file is replaced by rename on every save
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Store) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			s.mu.Lock()
			if s.debounceTimer != nil {
				s.debounceTimer.Stop()
			}
			s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
			s.mu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads the file when another process rewrote it.
func (s *Store) handleFileChange() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.sendEvent(Event{Type: EventError, Error: err})
		}
		return
	}

	s.mu.Lock()
	if bytes.Equal(data, s.lastSaved) {
		s.mu.Unlock()
		return
	}
	f, err := parseFile(data)
	if err != nil {
		s.mu.Unlock()
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	s.applyLocked(f)
	s.lastSaved = data
	s.mu.Unlock()

	logger.Info("accounts file changed on disk, reloaded", "path", s.filePath)
	s.sendEvent(Event{Type: EventAccountsChanged})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Store) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
