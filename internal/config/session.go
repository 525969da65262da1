package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RunRecord is the persisted summary of one pipeline run
type RunRecord struct {
	ID            string          `json:"id"`
	Root          string          `json:"root"`
	Mode          string          `json:"mode"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Steps         []RunStepRecord `json:"steps"`
	Errors        []string        `json:"errors,omitempty"`
	TotalFiles    int             `json:"total_files"`
	Processed     int             `json:"processed"`
	Unprocessable int             `json:"unprocessable"`
	Interrupted   bool            `json:"interrupted,omitempty"`
}

// RunStepRecord is one step entry inside a RunRecord
type RunStepRecord struct {
	Name      string    `json:"name"`
	Success   bool      `json:"success"`
	ErrorCode string    `json:"error_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryStore persists run records as JSON files, one per run
type HistoryStore struct {
	dir string
}

// NewHistoryStore opens the history directory under the user config dir
func NewHistoryStore() (*HistoryStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewHistoryStoreAt(filepath.Join(homeDir, ".config", "orgest", "runs"))
}

// NewHistoryStoreAt opens (and creates) a history directory at dir
func NewHistoryStoreAt(dir string) (*HistoryStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &HistoryStore{dir: dir}, nil
}

// Save writes a run record to disk
func (hs *HistoryStore) Save(record *RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no id")
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	filename := filepath.Join(hs.dir, record.ID+".json")
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}

	return nil
}

// Load loads a run record by ID
func (hs *HistoryStore) Load(id string) (*RunRecord, error) {
	data, err := os.ReadFile(filepath.Join(hs.dir, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}

	return &record, nil
}

// List returns all saved run records, newest first
func (hs *HistoryStore) List() ([]*RunRecord, error) {
	entries, err := os.ReadDir(hs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var records []*RunRecord
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		record, err := hs.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip unreadable records
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	return records, nil
}

// Delete removes a run record by ID
func (hs *HistoryStore) Delete(id string) error {
	if err := os.Remove(filepath.Join(hs.dir, id+".json")); err != nil {
		return fmt.Errorf("failed to delete run record: %w", err)
	}
	return nil
}

// Prune removes records that started more than days ago
func (hs *HistoryStore) Prune(days int) (int, error) {
	records, err := hs.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0
	for _, record := range records {
		if record.StartedAt.Before(cutoff) {
			if err := hs.Delete(record.ID); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}
