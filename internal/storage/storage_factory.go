package storage

import "fmt"

type StorageType string

const (
	InMemoryStorageType StorageType = "memory"
	JSONStorageType     StorageType = "json"
	SQLStorageType      StorageType = "sqlite"
)

type StorageConfig struct {
	Type     StorageType
	FilePath string // Used for JSON and SQLite storage
	Locale   string // Collation for text sort keys; empty means root
}

type localeSetter interface {
	SetLocale(locale string)
}

// NewStorage creates a new storage instance based on the provided configuration
func NewStorage(config StorageConfig) (Storage, error) {
	var (
		s   Storage
		err error
	)
	switch config.Type {
	case InMemoryStorageType, "":
		s = NewInMemoryStorage()
	case JSONStorageType:
		if config.FilePath == "" {
			return nil, fmt.Errorf("file path is required for JSON storage")
		}
		s, err = NewJSONStorage(config.FilePath)
	case SQLStorageType:
		if config.FilePath == "" {
			return nil, fmt.Errorf("file path is required for SQLite storage")
		}
		s, err = NewSQLStorage(config.FilePath)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	if config.Locale != "" {
		if ls, ok := s.(localeSetter); ok {
			ls.SetLocale(config.Locale)
		}
	}
	return s, nil
}
