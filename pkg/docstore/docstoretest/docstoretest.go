// Package docstoretest provides an in-memory sqlite backed store for tests.
package docstoretest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"anoa.com/clubportal/pkg/docstore"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Recorder collects every change the store commits.
type Recorder struct {
	mu      sync.Mutex
	changes []docstore.Change
}

func (r *Recorder) Notify(_ context.Context, change docstore.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *Recorder) Changes() []docstore.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]docstore.Change, len(r.changes))
	copy(out, r.changes)
	return out
}

// OpenDB returns a per-test in-memory database with the documents table.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, docstore.Migrate(db))
	return db
}

// New returns a fresh store and the recorder wired as its notifier.
func New(t *testing.T) (docstore.Store, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	return docstore.NewGormStore(OpenDB(t), rec), rec
}

// NewWithNotifier returns a fresh store publishing to n.
func NewWithNotifier(t *testing.T, n docstore.Notifier) docstore.Store {
	t.Helper()
	return docstore.NewGormStore(OpenDB(t), n)
}
