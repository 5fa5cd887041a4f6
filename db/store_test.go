package db

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agripress/config"
	"agripress/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a temporary directory for test store files
func createTempDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "agripress_store_test_")
	require.NoError(t, err, "Failed to create temp directory")
	return dir
}

// Helper to create a default config pointing to a temp file path
func createTestConfig(t *testing.T, tempDir string) *config.Config {
	return &config.Config{
		StoreFilePath: filepath.Join(tempDir, "test_store.json"),
		SaveInterval:  10 * time.Millisecond, // Short interval for debounce tests
		EnableBackup:  true,
		JwtSecret:     "test-secret",
		TokenLifetime: time.Hour,
		BcryptCost:    4, // Minimum cost keeps hashing fast in tests
		ListenAddress: "127.0.0.1",
		ListenPort:    "0",
	}
}

// Helper to set up a store instance, returning it and a cleanup function
func setupTestStore(t *testing.T) (*Store, func()) {
	tempDir := createTempDir(t)
	cfg := createTestConfig(t, tempDir)
	s, err := NewStore(cfg)
	require.NoError(t, err, "NewStore failed during setup")

	cleanup := func() {
		s.saveMutex.Lock()
		if s.saveTimer != nil {
			s.saveTimer.Stop()
		}
		s.saveMutex.Unlock()
		if err := os.RemoveAll(tempDir); err != nil {
			t.Logf("Warning: Failed to remove temp directory %s: %v", tempDir, err)
		}
	}

	return s, cleanup
}

// --- Load tests ---

func TestStore_Load_FileNotFound(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)
	cfg := createTestConfig(t, tempDir)

	_ = os.Remove(cfg.StoreFilePath)

	s, err := NewStore(cfg)
	require.NoError(t, err, "NewStore should not fail when the file is missing")
	assert.JSONEq(t, "[]", string(s.Get(models.ColArticles)), "Absent collections should read as empty arrays")
}

func TestStore_Load_ValidFile(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)
	cfg := createTestConfig(t, tempDir)

	content := `{"collections": {"news": [{"id": "n1", "title": "Harvest report"}]}}`
	require.NoError(t, os.WriteFile(cfg.StoreFilePath, []byte(content), 0644))

	s, err := NewStore(cfg)
	require.NoError(t, err)

	news := Records[models.NewsItem](s, models.ColNews)
	require.Len(t, news, 1)
	assert.Equal(t, "n1", news[0].ID)
	assert.Equal(t, "Harvest report", news[0].Title)
}

func TestStore_Load_InvalidFile(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)
	cfg := createTestConfig(t, tempDir)

	require.NoError(t, os.WriteFile(cfg.StoreFilePath, []byte(`{"collections": {nope`), 0644))

	_, err := NewStore(cfg)
	assert.Error(t, err, "A present but unparsable file must fail loudly, not silently reset data")
}

// --- Get / Set / Records round trip ---

func TestStore_SetAndGet_RoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	items := []models.NewsItem{
		{ID: "n1", Title: "First"},
		{ID: "n2", Title: "Second"},
	}
	require.NoError(t, s.Set(models.ColNews, items))

	raw := s.Get(models.ColNews)
	var decoded []models.NewsItem
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, items, decoded)
}

func TestStore_Get_UnknownCollection(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	assert.JSONEq(t, "[]", string(s.Get("never_written")))
}

func TestStore_CollectionsAreIndependent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1"}}))
	require.NoError(t, s.Set(models.ColProducts, []models.Product{{ID: "p1"}, {ID: "p2"}}))

	assert.Len(t, Records[models.NewsItem](s, models.ColNews), 1)
	assert.Len(t, Records[models.Product](s, models.ColProducts), 2)
}

// --- Persistence ---

func TestStore_Persist_WritesFileAndBackup(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)
	cfg := createTestConfig(t, tempDir)
	cfg.SaveInterval = 0 // Immediate save path

	s, err := NewStore(cfg)
	require.NoError(t, err)

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1", Title: "Persisted"}}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(cfg.StoreFilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"collections"`)
	assert.Contains(t, string(data), "Persisted")

	// Second write should move the first file to .bak
	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1", Title: "Updated"}}))
	require.NoError(t, s.Close())

	_, err = os.Stat(cfg.StoreFilePath + ".bak")
	assert.NoError(t, err, "Backup file should exist after the second persist")
}

func TestStore_Persist_SurvivesReload(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)
	cfg := createTestConfig(t, tempDir)
	cfg.SaveInterval = 0

	s, err := NewStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Set(models.ColPlans, []models.SubscriptionPlan{
		{ID: "plan1", Name: "Annual", DurationMonths: 12},
	}))
	require.NoError(t, s.Close())

	reloaded, err := NewStore(cfg)
	require.NoError(t, err)
	plans := Records[models.SubscriptionPlan](reloaded, models.ColPlans)
	require.Len(t, plans, 1)
	assert.Equal(t, "Annual", plans[0].Name)
	assert.Equal(t, 12, plans[0].DurationMonths)
}

func TestStore_DebouncedSave_CoalescesWrites(t *testing.T) {
	tempDir := createTempDir(t)
	defer os.RemoveAll(tempDir)
	cfg := createTestConfig(t, tempDir)
	cfg.SaveInterval = 50 * time.Millisecond

	s, err := NewStore(cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: fmt.Sprintf("n%d", i)}}))
	}

	// Before the interval elapses nothing has been flushed yet.
	_, statErr := os.Stat(cfg.StoreFilePath)
	assert.True(t, os.IsNotExist(statErr), "File should not be written before the debounce interval")

	// After the interval the last state must be on disk.
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.StoreFilePath)
		return err == nil && len(data) > 0
	}, time.Second, 10*time.Millisecond, "Debounced save should eventually flush")

	data, err := os.ReadFile(cfg.StoreFilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "n4", "The flushed state must be the most recent write")
}

// --- mutate ---

func TestStore_Mutate_AppliesChange(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1", Title: "Old"}}))

	err := mutate(s, models.ColNews, func(items []models.NewsItem) ([]models.NewsItem, error) {
		items[0].Title = "New"
		return items, nil
	})
	require.NoError(t, err)

	news := Records[models.NewsItem](s, models.ColNews)
	assert.Equal(t, "New", news[0].Title)
}

func TestStore_Mutate_ErrorLeavesStateUntouched(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1", Title: "Old"}}))

	err := mutate(s, models.ColNews, func(items []models.NewsItem) ([]models.NewsItem, error) {
		return nil, fmt.Errorf("nope: %w", ErrNotFound)
	})
	require.ErrorIs(t, err, ErrNotFound)

	news := Records[models.NewsItem](s, models.ColNews)
	require.Len(t, news, 1)
	assert.Equal(t, "Old", news[0].Title)
}
