package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// SyncRecord stores the last-synced state of one cached file. The hash is
// taken right after a download or a successful upload; comparing it with the
// current file content detects unsaved local modifications.
type SyncRecord struct {
	ID         uint      `gorm:"primarykey"`
	LocalPath  string    `gorm:"uniqueIndex;not null"`
	RemotePath string    `gorm:"not null"`
	Hash       string    `gorm:"not null"`
	Size       int64     `gorm:"not null"`
	SyncedAt   time.Time `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SyncCache manages the sync-metadata database under the cache root.
type SyncCache struct {
	db *gorm.DB
}

// NewSyncCache opens (creating if needed) the metadata database.
func NewSyncCache(dbPath string) (*SyncCache, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&SyncRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %v", err)
	}

	return &SyncCache{db: db}, nil
}

// HashFile calculates the xxHash of a file for fast content comparison.
func HashFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := xxhash.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// RecordSync updates or creates the metadata for localPath after a download
// or upload completed.
func (sc *SyncCache) RecordSync(localPath, remotePath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	hash, err := HashFile(localPath)
	if err != nil {
		return err
	}

	record := SyncRecord{
		LocalPath:  localPath,
		RemotePath: remotePath,
		Hash:       hash,
		Size:       info.Size(),
		SyncedAt:   time.Now(),
	}

	result := sc.db.Where("local_path = ?", localPath).Assign(record).FirstOrCreate(&record)
	return result.Error
}

// IsDirty reports whether the cached file at localPath has been modified
// since it was last synced. A file that was never synced, or no longer
// exists locally, has nothing to lose and is not dirty.
func (sc *SyncCache) IsDirty(localPath string) (bool, error) {
	if _, err := os.Stat(localPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	var record SyncRecord
	err := sc.db.Where("local_path = ?", localPath).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	currentHash, err := HashFile(localPath)
	if err != nil {
		return false, err
	}

	return currentHash != record.Hash, nil
}

// Reset clears all sync metadata.
func (sc *SyncCache) Reset() error {
	result := sc.db.Unscoped().Delete(&SyncRecord{}, "1 = 1")
	if result.Error != nil {
		return fmt.Errorf("failed to reset cache: %v", result.Error)
	}
	return nil
}

// Stats returns the number of tracked files and their combined size.
func (sc *SyncCache) Stats() (totalFiles int64, totalSize int64, err error) {
	var count int64
	err = sc.db.Model(&SyncRecord{}).Count(&count).Error
	if err != nil {
		return 0, 0, err
	}

	var size int64
	err = sc.db.Model(&SyncRecord{}).Select("COALESCE(SUM(size), 0)").Scan(&size).Error
	if err != nil {
		return count, 0, err
	}

	return count, size, nil
}

// Close closes the database connection.
func (sc *SyncCache) Close() error {
	sqlDB, err := sc.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
