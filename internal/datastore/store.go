package datastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Data file names within the data directory. The top-level JSON key of each
// document matches its file name stem.
const (
	InventoryFile      = "infrastructure_inventory.json"
	HealthMetricsFile  = "health_metrics.json"
	LifeExpectancyFile = "equipment_life_expectancy.json"
)

// Store provides whole-document access to the three equipment data sets.
// There is no partial update: callers load a full collection, mutate it in
// memory, and save it back. Mutations that depend on the current contents
// go through the Update methods, which run the whole read-modify-write
// cycle as one critical section.
type Store interface {
	LoadInventory() ([]Equipment, error)
	SaveInventory([]Equipment) error
	UpdateInventory(fn func([]Equipment) ([]Equipment, error)) error
	LoadHealthMetrics() ([]HealthMetric, error)
	SaveHealthMetrics([]HealthMetric) error
	UpdateHealthMetrics(fn func([]HealthMetric) ([]HealthMetric, error)) error
	LoadLifeExpectancy() ([]LifeExpectancy, error)
}

// FileStore is the JSON-file-backed Store. All operations share one mutex,
// held across the full read-modify-write cycle of the Update methods, so
// concurrent mutators cannot interleave (the files have no transactional
// isolation).
type FileStore struct {
	mu      sync.Mutex
	dataDir string
}

// NewFileStore creates a store rooted at dataDir.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dataDir: dataDir}
}

// DataDir returns the directory the store reads and writes.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

type inventoryDoc struct {
	Inventory []Equipment `json:"infrastructure_inventory"`
}

type healthDoc struct {
	HealthMetrics []HealthMetric `json:"health_metrics"`
}

type lifeDoc struct {
	LifeExpectancy []LifeExpectancy `json:"equipment_life_expectancy"`
}

// LoadInventory reads the full equipment inventory. A missing file yields an
// empty slice; downstream logic decides whether that is fatal.
func (s *FileStore) LoadInventory() ([]Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc inventoryDoc
	if err := s.readDoc(InventoryFile, &doc); err != nil {
		return nil, err
	}
	return doc.Inventory, nil
}

// SaveInventory writes the full equipment inventory.
func (s *FileStore) SaveInventory(inventory []Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDoc(InventoryFile, inventoryDoc{Inventory: inventory})
}

// UpdateInventory applies fn to the current inventory and persists the
// result, all under the store lock. fn returning an error abandons the
// update and leaves the file untouched.
func (s *FileStore) UpdateInventory(fn func([]Equipment) ([]Equipment, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc inventoryDoc
	if err := s.readDoc(InventoryFile, &doc); err != nil {
		return err
	}
	updated, err := fn(doc.Inventory)
	if err != nil {
		return err
	}
	return s.writeDoc(InventoryFile, inventoryDoc{Inventory: updated})
}

// LoadHealthMetrics reads the full health metrics document.
func (s *FileStore) LoadHealthMetrics() ([]HealthMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc healthDoc
	if err := s.readDoc(HealthMetricsFile, &doc); err != nil {
		return nil, err
	}
	return doc.HealthMetrics, nil
}

// SaveHealthMetrics writes the full health metrics document.
func (s *FileStore) SaveHealthMetrics(metrics []HealthMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeDoc(HealthMetricsFile, healthDoc{HealthMetrics: metrics})
}

// UpdateHealthMetrics applies fn to the current health metrics and persists
// the result, all under the store lock.
func (s *FileStore) UpdateHealthMetrics(fn func([]HealthMetric) ([]HealthMetric, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc healthDoc
	if err := s.readDoc(HealthMetricsFile, &doc); err != nil {
		return err
	}
	updated, err := fn(doc.HealthMetrics)
	if err != nil {
		return err
	}
	return s.writeDoc(HealthMetricsFile, healthDoc{HealthMetrics: updated})
}

// LoadLifeExpectancy reads the static life-expectancy reference data.
func (s *FileStore) LoadLifeExpectancy() ([]LifeExpectancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc lifeDoc
	if err := s.readDoc(LifeExpectancyFile, &doc); err != nil {
		return nil, err
	}
	return doc.LifeExpectancy, nil
}

func (s *FileStore) readDoc(name string, out interface{}) error {
	path := filepath.Join(s.dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// First-run tolerance: an absent file is an empty collection.
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) writeDoc(name string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(s.dataDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
