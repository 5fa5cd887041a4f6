package db

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"agripress/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers snapshots delivered to a subscriber.
type collector struct {
	mu        sync.Mutex
	snapshots []string
}

func (c *collector) handler(snapshot json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = append(c.snapshots, string(snapshot))
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

func (c *collector) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.snapshots) == 0 {
		return ""
	}
	return c.snapshots[len(c.snapshots)-1]
}

func TestBus_Subscribe_DeliversInitialSnapshot(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1"}}))

	col := &collector{}
	unsub := s.Subscribe(models.ColNews, col.handler)
	defer unsub()

	// The initial snapshot arrives asynchronously, shortly after subscribing.
	assert.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, col.last(), "n1")
}

func TestBus_Subscribe_InitialSnapshotOfEmptyCollection(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	col := &collector{}
	unsub := s.Subscribe(models.ColNews, col.handler)
	defer unsub()

	assert.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.JSONEq(t, "[]", col.last())
}

func TestBus_Subscribe_WriteDuringInitialDeliveryIsNotOvertaken(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "old"}}))

	col := &collector{}
	unsub := s.Subscribe(models.ColNews, col.handler)
	defer unsub()

	// Write immediately, before the asynchronous first delivery has had a
	// chance to run. Whatever the interleaving, the last snapshot the
	// subscriber sees must be the newest one.
	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "new"}}))

	require.Eventually(t, func() bool { return col.count() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, col.last(), "new")
	assert.NotContains(t, col.last(), "old")
}

func TestBus_Publish_DeliversFullSnapshotOnEveryWrite(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	col := &collector{}
	unsub := s.Subscribe(models.ColNews, col.handler)
	defer unsub()

	require.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1"}}))
	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1"}, {ID: "n2"}}))

	// Post-write delivery is synchronous with Set, so both are visible now.
	assert.Equal(t, 3, col.count(), "One initial snapshot plus one per write")
	assert.Contains(t, col.last(), "n2")
}

func TestBus_Publish_ScopedToCollection(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	newsCol := &collector{}
	productCol := &collector{}
	unsubNews := s.Subscribe(models.ColNews, newsCol.handler)
	defer unsubNews()
	unsubProducts := s.Subscribe(models.ColProducts, productCol.handler)
	defer unsubProducts()

	require.Eventually(t, func() bool {
		return newsCol.count() == 1 && productCol.count() == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1"}}))

	assert.Equal(t, 2, newsCol.count())
	assert.Equal(t, 1, productCol.count(), "Writes to one collection must not notify another's subscribers")
}

func TestBus_Unsubscribe_StopsDelivery(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	col := &collector{}
	unsub := s.Subscribe(models.ColNews, col.handler)
	require.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)

	unsub()
	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1"}}))

	assert.Equal(t, 1, col.count(), "No delivery after unsubscribe")
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	col := &collector{}
	unsubBad := s.Subscribe(models.ColNews, func(json.RawMessage) { panic("subscriber bug") })
	defer unsubBad()
	unsubGood := s.Subscribe(models.ColNews, col.handler)
	defer unsubGood()

	require.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)

	// The panic must neither crash the process nor starve other subscribers.
	require.NoError(t, s.Set(models.ColNews, []models.NewsItem{{ID: "n1"}}))
	assert.Equal(t, 2, col.count())
}

func TestBus_SubscribeSorted_SortsSnapshots(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.Set(models.ColProducts, []models.Product{
		{ID: "p1", Name: "Seeder", Price: 30},
		{ID: "p2", Name: "Tiller", Price: 10},
		{ID: "p3", Name: "Plough", Price: 20},
	}))

	col := &collector{}
	unsub := s.SubscribeSorted(models.ColProducts, "price", false, col.handler)
	defer unsub()

	require.Eventually(t, func() bool { return col.count() == 1 }, time.Second, 5*time.Millisecond)

	var sorted []models.Product
	require.NoError(t, json.Unmarshal([]byte(col.last()), &sorted))
	require.Len(t, sorted, 3)
	assert.Equal(t, []string{"p2", "p3", "p1"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
}

func TestSortSnapshot_StringField(t *testing.T) {
	snapshot := json.RawMessage(`[{"id":"b","name":"beta"},{"id":"a","name":"alpha"}]`)
	sorted := SortSnapshot(snapshot, "name", false)

	var items []map[string]string
	require.NoError(t, json.Unmarshal(sorted, &items))
	assert.Equal(t, "alpha", items[0]["name"])

	desc := SortSnapshot(snapshot, "name", true)
	require.NoError(t, json.Unmarshal(desc, &items))
	assert.Equal(t, "beta", items[0]["name"])
}

func TestSortSnapshot_DescendingKeepsEqualValuesStable(t *testing.T) {
	// "1" and "1.0" are the same number in different textual forms. Equal
	// keys must keep their original relative order in both directions.
	snapshot := json.RawMessage(`[{"id":"a","rank":1},{"id":"b","rank":1.0},{"id":"c","rank":2}]`)

	var items []map[string]interface{}
	desc := SortSnapshot(snapshot, "rank", true)
	require.NoError(t, json.Unmarshal(desc, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0]["id"])
	assert.Equal(t, "a", items[1]["id"])
	assert.Equal(t, "b", items[2]["id"])

	asc := SortSnapshot(snapshot, "rank", false)
	require.NoError(t, json.Unmarshal(asc, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0]["id"])
	assert.Equal(t, "b", items[1]["id"])
	assert.Equal(t, "c", items[2]["id"])
}
