package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// blob is one logical collection of the local store, stored as a JSON document.
type blob struct {
	Key       string `gorm:"column:blob_key;primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// BlobStore is a key-value store of JSON blobs. Collections are read and
// rewritten wholesale; there is no partial write.
type BlobStore struct {
	db *gorm.DB
}

func NewBlobStore(db *gorm.DB) *BlobStore {
	return &BlobStore{db: db}
}

// Load decodes the blob at key into dst and reports whether it existed.
func (s *BlobStore) Load(ctx context.Context, key string, dst interface{}) (bool, error) {
	return load(s.db.WithContext(ctx), key, dst)
}

// Save replaces the blob at key.
func (s *BlobStore) Save(ctx context.Context, key string, value interface{}) error {
	return save(s.db.WithContext(ctx), key, value)
}

// Update loads key into dst, calls fn and writes dst back, all in one transaction.
// Returning errSkipWrite from fn leaves the blob untouched.
func (s *BlobStore) Update(ctx context.Context, key string, dst interface{}, fn func(exists bool) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := load(tx, key, dst)
		if err != nil {
			return err
		}
		if err := fn(exists); err != nil {
			if errors.Is(err, errSkipWrite) {
				return nil
			}
			return err
		}
		return save(tx, key, dst)
	})
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&blob{Key: key}).Error; err != nil {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

// Each decodes every blob whose key starts with prefix, in insertion order.
func (s *BlobStore) Each(ctx context.Context, prefix string, fn func(key string, raw []byte) error) error {
	var rows []blob
	err := s.db.WithContext(ctx).
		Where("blob_key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("rowid ASC").
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("scan blobs %q: %w", prefix, err)
	}
	for _, row := range rows {
		if err := fn(row.Key, row.Value); err != nil {
			return err
		}
	}
	return nil
}

var errSkipWrite = errors.New("skip write")

func load(db *gorm.DB, key string, dst interface{}) (bool, error) {
	var row blob
	err := db.Where("blob_key = ?", key).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("load blob %q: %w", key, err)
	}
	if err := json.Unmarshal(row.Value, dst); err != nil {
		return false, fmt.Errorf("decode blob %q: %w", key, err)
	}
	return true, nil
}

func save(db *gorm.DB, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode blob %q: %w", key, err)
	}
	row := blob{Key: key, Value: raw, UpdatedAt: time.Now()}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
