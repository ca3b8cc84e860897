// Package store persists branch records for tracked checkouts. Each record
// remembers the last branch observed for one chat identity so a restarted
// host can resume with the right context without re-probing git.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// BranchRecord is the persisted state for one tracked checkout.
type BranchRecord struct {
	CheckoutPath string    `yaml:"checkout_path"`
	Branch       string    `yaml:"branch"`
	UpdatedAt    time.Time `yaml:"updated_at"`
}

// RecordStore is a yaml-backed store of branch records keyed by chat ID.
// Every mutation rewrites the whole file; the record count is small (one
// per active chat) so read-modify-write is fine.
type RecordStore struct {
	path string
	mu   sync.Mutex
}

// NewRecordStore creates a store backed by the given file path. The file
// and its parent directory are created lazily on first write.
func NewRecordStore(path string) *RecordStore {
	return &RecordStore{path: path}
}

// DefaultPath returns the conventional record file location,
// <user config dir>/tendril/records.yml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "tendril", "records.yml"), nil
}

// Load reads all records. Returns an empty map if the file doesn't exist.
func (s *RecordStore) Load() (map[string]BranchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *RecordStore) load() (map[string]BranchRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]BranchRecord), nil
		}
		return nil, fmt.Errorf("read record file: %w", err)
	}

	var records map[string]BranchRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse record file: %w", err)
	}
	if records == nil {
		records = make(map[string]BranchRecord)
	}
	return records, nil
}

func (s *RecordStore) save(records map[string]BranchRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}

	data, err := yaml.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write record file: %w", err)
	}
	return nil
}

// UpdateBranchRecord records the branch currently checked out for a chat.
// An empty branch is valid and means the checkout is on a detached HEAD.
func (s *RecordStore) UpdateBranchRecord(chatID, checkoutPath, branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}

	records[chatID] = BranchRecord{
		CheckoutPath: checkoutPath,
		Branch:       branch,
		UpdatedAt:    time.Now().UTC(),
	}
	return s.save(records)
}

// GetBranchRecord retrieves the record for a chat.
// Returns false if no record exists.
func (s *RecordStore) GetBranchRecord(chatID string) (BranchRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return BranchRecord{}, false, err
	}
	rec, ok := records[chatID]
	return rec, ok, nil
}

// DeleteBranchRecord removes the record for a chat. Deleting a missing
// record is not an error.
func (s *RecordStore) DeleteBranchRecord(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := records[chatID]; !ok {
		return nil
	}
	delete(records, chatID)
	return s.save(records)
}
