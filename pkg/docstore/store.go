package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
)

// Change describes a committed mutation. Subscribers re-read the collection;
// the change itself never carries document bodies.
type Change struct {
	Collection string `json:"collection"`
	Path       string `json:"path"`
	Op         Op     `json:"op"`
}

// Notifier receives every committed change.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

// Store is the document/collection store the workflows run against.
// Every mutation is a whole-document write; CompareAndSet and
// CompareAndDelete are the conditional primitives keyed on Version.
type Store interface {
	Get(ctx context.Context, path string, out any) (int64, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	// CompareAndSet writes value only if the stored version equals version.
	// Version 0 means the document must not exist yet.
	CompareAndSet(ctx context.Context, path string, version int64, value any) (int64, error)
	CompareAndDelete(ctx context.Context, path string, version int64) error
	// RunInTransaction runs fn against a store bound to one database
	// transaction. Writes made through tx commit together or not at all,
	// and their changes are announced only after commit. Nested calls join
	// the outer transaction.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db       *gorm.DB
	notifier Notifier
	// pending is set inside a transaction; changes wait there for commit.
	pending *[]Change
}

func NewGormStore(db *gorm.DB, notifier Notifier) Store {
	return &gormStore{db: db, notifier: notifier}
}

// Migrate creates the documents table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Document{})
}

func (s *gormStore) Get(ctx context.Context, path string, out any) (int64, error) {
	var doc Document
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if out != nil {
		if err := doc.Decode(out); err != nil {
			return 0, err
		}
	}
	return doc.Version, nil
}

func (s *gormStore) List(ctx context.Context, collection string) ([]Document, error) {
	var docs []Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("path").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *gormStore) Set(ctx context.Context, path string, value any) error {
	doc, err := newDocument(path, value)
	if err != nil {
		return err
	}

	assignments := clause.AssignmentColumns([]string{"data", "updated_at"})
	assignments = append(assignments, clause.Assignment{
		Column: clause.Column{Name: "version"},
		Value:  gorm.Expr("documents.version + 1"),
	})

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: assignments,
	}).Create(doc).Error; err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}

	s.notify(ctx, doc.Collection, path, OpSet)
	return nil
}

func (s *gormStore) Update(ctx context.Context, path string, fields map[string]any) error {
	_, err := Mutate(ctx, s, path, func(doc *map[string]json.RawMessage, exists bool) (Action, error) {
		if !exists {
			return Keep, ErrNotFound
		}
		if *doc == nil {
			*doc = make(map[string]json.RawMessage, len(fields))
		}
		for key, value := range fields {
			raw, err := json.Marshal(value)
			if err != nil {
				return Keep, fmt.Errorf("encode field %s: %w", key, err)
			}
			(*doc)[key] = raw
		}
		return Write, nil
	})
	return err
}

func (s *gormStore) Delete(ctx context.Context, path string) error {
	collection, _, err := Split(path)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Where("path = ?", path).Delete(&Document{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", path, res.Error)
	}
	if res.RowsAffected > 0 {
		s.notify(ctx, collection, path, OpDelete)
	}
	return nil
}

func (s *gormStore) CompareAndSet(ctx context.Context, path string, version int64, value any) (int64, error) {
	doc, err := newDocument(path, value)
	if err != nil {
		return 0, err
	}

	db := s.db.WithContext(ctx)
	if version == 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(doc)
		if res.Error != nil {
			return 0, fmt.Errorf("create %s: %w", path, res.Error)
		}
		if res.RowsAffected == 0 {
			return 0, ErrConflict
		}
		s.notify(ctx, doc.Collection, path, OpSet)
		return 1, nil
	}

	res := db.Model(&Document{}).
		Where("path = ? AND version = ?", path, version).
		Updates(map[string]interface{}{
			"data":       doc.Data,
			"version":    version + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("update %s: %w", path, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrConflict
	}

	s.notify(ctx, doc.Collection, path, OpSet)
	return version + 1, nil
}

func (s *gormStore) CompareAndDelete(ctx context.Context, path string, version int64) error {
	collection, _, err := Split(path)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("path = ? AND version = ?", path, version).
		Delete(&Document{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", path, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}

	s.notify(ctx, collection, path, OpDelete)
	return nil
}

func (s *gormStore) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	if s.pending != nil {
		return fn(s)
	}

	var changes []Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changes = changes[:0]
		return fn(&gormStore{db: tx, notifier: s.notifier, pending: &changes})
	})
	if err != nil {
		return err
	}

	for _, change := range changes {
		s.notify(ctx, change.Collection, change.Path, change.Op)
	}
	return nil
}

func (s *gormStore) notify(ctx context.Context, collection, path string, op Op) {
	change := Change{Collection: collection, Path: path, Op: op}
	if s.pending != nil {
		*s.pending = append(*s.pending, change)
		return
	}
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, change)
}

func newDocument(path string, value any) (*Document, error) {
	collection, id, err := Split(path)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return &Document{
		Path:       path,
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSON(raw),
		Version:    1,
	}, nil
}
