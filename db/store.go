package db

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"agripress/config"
)

// storeFile is the on-disk shape of the store: one JSON array per
// collection name.
type storeFile struct {
	Collections map[string]json.RawMessage `json:"collections"`
}

// Store is the keyed collection store. Every collection is held and
// persisted as one serialized JSON array under its name. All reads and
// writes go through one RWMutex, so concurrent writers to the same
// collection are serialized rather than racing last-write-wins.
type Store struct {
	mu          sync.RWMutex
	collections map[string]json.RawMessage

	bus *Bus
	cfg *config.Config

	saveTimer   *time.Timer // Timer for debounced saving
	savePending bool        // Flag to indicate if a save is queued
	saveMutex   sync.Mutex  // Mutex specifically for the save timer logic
}

// NewStore creates a Store backed by the file named in cfg and loads any
// existing data. A missing file is not an error; a file that exists but
// cannot be parsed is.
func NewStore(cfg *config.Config) (*Store, error) {
	s := &Store{
		collections: make(map[string]json.RawMessage),
		bus:         newBus(),
		cfg:         cfg,
	}

	log.Printf("INFO: Initializing store with file: %s", cfg.StoreFilePath)
	if err := s.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("ERROR: Store Load failed with critical error: %v", err)
			return nil, err
		}
	}

	return s, nil
}

// Load reads the store state from the JSON file named in the configuration.
// If the file doesn't exist, it initializes an empty state and logs a message.
// If the file exists but cannot be parsed, it returns the parse error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fileData, err := os.ReadFile(s.cfg.StoreFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("INFO: Store file '%s' not found. Initializing empty store.", s.cfg.StoreFilePath)
			s.collections = make(map[string]json.RawMessage)
			return nil
		}
		log.Printf("ERROR: Failed to read store file '%s': %v. Proceeding with empty state.", s.cfg.StoreFilePath, err)
		s.collections = make(map[string]json.RawMessage)
		return nil
	}

	var sf storeFile
	if err := json.Unmarshal(fileData, &sf); err != nil {
		log.Printf("CRITICAL: Failed to parse JSON data from store file '%s': %v", s.cfg.StoreFilePath, err)
		if s.collections == nil {
			s.collections = make(map[string]json.RawMessage)
		}
		return err
	}

	if sf.Collections == nil {
		sf.Collections = make(map[string]json.RawMessage)
	}
	s.collections = sf.Collections

	log.Printf("INFO: Successfully loaded store from %s. Collections: %d", s.cfg.StoreFilePath, len(s.collections))
	return nil
}

// Get returns the serialized array for a collection, or "[]" if absent.
// It never fails; malformed stored data is the caller's concern.
func (s *Store) Get(name string) json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.collections[name]
	if !ok || len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return raw
}

// Set serializes items, overwrites the collection's prior value, notifies
// every subscriber for that collection synchronously with the new
// snapshot, and schedules a debounced save.
func (s *Store) Set(name string, items any) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to serialize collection '%s': %w", name, err)
	}

	s.mu.Lock()
	s.collections[name] = data
	s.mu.Unlock()

	s.bus.publish(name, data)
	s.requestSave()
	return nil
}

// Subscribe registers a callback for a collection. The current snapshot is
// delivered once asynchronously; afterwards every Set for that collection
// invokes the callback with the complete new array. The returned function
// deregisters the callback.
func (s *Store) Subscribe(name string, fn Handler) (unsubscribe func()) {
	return s.bus.subscribe(name, func() json.RawMessage {
		return s.Get(name)
	}, fn)
}

// SubscribeSorted is Subscribe with the initial snapshot ordered by a
// top-level JSON field before delivery.
func (s *Store) SubscribeSorted(name, sortField string, descending bool, fn Handler) (unsubscribe func()) {
	return s.bus.subscribe(name, func() json.RawMessage {
		return SortSnapshot(s.Get(name), sortField, descending)
	}, fn)
}

// Records decodes a collection into a typed slice. Absent or empty
// collections yield an empty slice.
func Records[T any](s *Store, name string) []T {
	raw := s.Get(name)
	out := make([]T, 0)
	if err := json.Unmarshal(raw, &out); err != nil {
		// The store only ever writes well-formed arrays; a decode failure
		// means the stored shape no longer matches T.
		log.Printf("ERROR: Failed to decode collection '%s': %v", name, err)
		return []T{}
	}
	return out
}

// Put writes a typed slice as the new content of a collection.
func Put[T any](s *Store, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return s.Set(name, items)
}

// mutate runs fn under the write lock against the decoded collection and,
// when fn reports a change, writes the result back, notifies subscribers,
// and schedules a save. Every higher-level add/update/delete is this one
// read-modify-write step, so two domain operations on the same collection
// cannot interleave.
func mutate[T any](s *Store, name string, fn func(items []T) ([]T, error)) error {
	s.mu.Lock()

	items := make([]T, 0)
	if raw, ok := s.collections[name]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to decode collection '%s': %w", name, err)
		}
	}

	updated, err := fn(items)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if updated == nil {
		updated = []T{}
	}

	data, err := json.Marshal(updated)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to serialize collection '%s': %w", name, err)
	}
	s.collections[name] = data
	s.mu.Unlock()

	s.bus.publish(name, data)
	s.requestSave()
	return nil
}

// decodeLocked decodes a collection into a typed slice. Caller must hold mu.
func decodeLocked[T any](s *Store, name string) ([]T, error) {
	items := make([]T, 0)
	if raw, ok := s.collections[name]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode collection '%s': %w", name, err)
		}
	}
	return items, nil
}

// storeLocked serializes items into the collection map and returns the new
// snapshot so the caller can publish it after releasing mu. Caller must
// hold mu. Used by operations that must write two collections atomically.
func storeLocked[T any](s *Store, name string, items []T) (json.RawMessage, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize collection '%s': %w", name, err)
	}
	s.collections[name] = data
	return data, nil
}

// persist saves the current store state to the JSON file. This is the
// actual file writing logic, called by the debounced mechanism.
func (s *Store) persist() error {
	s.mu.RLock()
	sf := storeFile{Collections: s.collections}
	jsonData, err := json.MarshalIndent(&sf, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		log.Printf("ERROR: Failed to marshal store state to JSON: %v", err)
		return err
	}

	// --- Atomic Write ---
	tempFilePath := s.cfg.StoreFilePath + ".tmp"
	backupFilePath := s.cfg.StoreFilePath + ".bak"

	if err := os.WriteFile(tempFilePath, jsonData, 0644); err != nil {
		log.Printf("ERROR: Failed to write to temporary store file '%s': %v", tempFilePath, err)
		return err
	}

	if s.cfg.EnableBackup {
		if _, err := os.Stat(s.cfg.StoreFilePath); err == nil {
			if err := os.Rename(s.cfg.StoreFilePath, backupFilePath); err != nil {
				log.Printf("WARN: Failed to rename '%s' to '%s' for backup: %v. Proceeding with save.", s.cfg.StoreFilePath, backupFilePath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("WARN: Error checking status of store file '%s' before backup: %v", s.cfg.StoreFilePath, err)
		}
	}

	if err := os.Rename(tempFilePath, s.cfg.StoreFilePath); err != nil {
		log.Printf("ERROR: Failed to atomically rename temporary file '%s' to '%s': %v", tempFilePath, s.cfg.StoreFilePath, err)
		_ = os.Remove(tempFilePath)
		return err
	}

	log.Printf("INFO: Successfully saved store state to %s", s.cfg.StoreFilePath)
	return nil
}

// requestSave is called after every write operation to trigger a
// debounced save.
func (s *Store) requestSave() {
	s.saveMutex.Lock()
	defer s.saveMutex.Unlock()

	// Instant save if interval is zero or negative
	if s.cfg.SaveInterval <= 0 {
		go func() {
			if err := s.persist(); err != nil {
				log.Printf("ERROR: Immediate persist failed: %v", err)
			}
		}()
		return
	}

	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.savePending = true

	s.saveTimer = time.AfterFunc(s.cfg.SaveInterval, func() {
		s.saveMutex.Lock()
		if !s.savePending {
			s.saveMutex.Unlock()
			return
		}
		s.savePending = false
		s.saveMutex.Unlock()

		log.Printf("INFO: Debounced save interval elapsed. Persisting store...")
		if err := s.persist(); err != nil {
			log.Printf("ERROR: Debounced persist failed: %v", err)
		}
	})
}

// Close ensures any pending save operation is completed before shutdown.
func (s *Store) Close() error {
	var needsFinalPersist bool

	s.saveMutex.Lock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if s.savePending {
		needsFinalPersist = true
		s.savePending = false
	}
	s.saveMutex.Unlock()

	if needsFinalPersist {
		log.Printf("INFO: Performing final persist operation on close...")
		if err := s.persist(); err != nil {
			log.Printf("ERROR: Final persist operation failed during close: %v", err)
			return err
		}
	}
	return nil
}
