package storage

import (
	"fmt"
	"strings"

	"github.com/lgulliver/simpledrive/pkg/config"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Selector resolves a backend by configured name or recorded provider. All
// backends are built once when the selector is created.
type Selector struct {
	config   *config.StorageConfig
	backends map[string]Backend
	fallback Backend
}

// NewSelector builds every backend the configuration allows. The file
// backend is required; the others are skipped with a warning when they
// cannot be constructed. db may be nil, which disables the database backend.
func NewSelector(cfg *config.StorageConfig, db *gorm.DB) (*Selector, error) {
	RegisterMetrics()

	file, err := NewFileBackend(cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	s := &Selector{
		config:   cfg,
		backends: map[string]Backend{ProviderFile: Instrument(file)},
	}
	s.fallback = s.backends[ProviderFile]

	if db != nil {
		s.backends[ProviderDatabase] = Instrument(NewDatabaseBackend(db))
	} else {
		log.Warn().Msg("no database connection, database storage disabled")
	}

	s3Client, err := NewS3Client(S3Options{
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Endpoint:  cfg.S3.Endpoint,
		Timeout:   cfg.S3.Timeout,
	})
	if err != nil {
		logUnavailable(ProviderS3, err)
	} else {
		s.backends[ProviderS3] = Instrument(NewS3Backend(s3Client))
	}

	ftpClient, err := NewFTPClient(FTPOptions{
		Host:      cfg.FTP.Host,
		Port:      cfg.FTP.Port,
		Username:  cfg.FTP.Username,
		Password:  cfg.FTP.Password,
		Directory: cfg.FTP.Directory,
		Passive:   cfg.FTP.Passive,
		Timeout:   cfg.FTP.Timeout,
	})
	if err != nil {
		logUnavailable(ProviderFTP, err)
	} else {
		s.backends[ProviderFTP] = Instrument(NewFTPBackend(ftpClient))
	}

	return s, nil
}

func logUnavailable(provider string, err error) {
	// Debug when the backend is simply not configured
	if err == ErrMissingCredentials || err == ErrMissingFTPSettings {
		log.Debug().Str("provider", provider).Msg("storage backend not configured")
		return
	}
	log.Warn().Str("provider", provider).Str("reason", Scrub(err.Error())).Msg("storage backend unavailable")
}

// normalizeName maps a configured backend name to a provider name
func normalizeName(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "file", "local":
		return ProviderFile, true
	case "database", "db":
		return ProviderDatabase, true
	case "s3":
		return ProviderS3, true
	case "ftp":
		return ProviderFTP, true
	default:
		return "", false
	}
}

// Select returns the backend for name. Unknown names and backends that could
// not be constructed fall back to file storage with a warning.
func (s *Selector) Select(name string) Backend {
	provider, ok := normalizeName(name)
	if !ok {
		log.Warn().Str("backend", name).Msg("unknown storage backend, using file storage")
		return s.fallback
	}

	backend, ok := s.backends[provider]
	if !ok {
		log.Warn().Str("backend", provider).Msg("storage backend is not configured, using file storage")
		return s.fallback
	}
	return backend
}

// Default returns the backend named in the configuration
func (s *Selector) Default() Backend {
	return s.Select(s.config.Backend)
}

// ForProvider returns the backend that wrote a blob. It never substitutes a
// different backend.
func (s *Selector) ForProvider(provider string) (Backend, error) {
	name, ok := normalizeName(provider)
	if !ok {
		return nil, Wrap(ErrCodeConfiguration, msgUnknownProvider, fmt.Errorf("unknown storage provider %q", provider))
	}

	backend, ok := s.backends[name]
	if !ok {
		return nil, Wrap(ErrCodeCredentialsMissing, msgBackendNotReady, fmt.Errorf("storage provider %q is not configured", name))
	}
	return backend, nil
}

// Available lists the providers that were constructed
func (s *Selector) Available() []string {
	var providers []string
	for _, p := range []string{ProviderFile, ProviderDatabase, ProviderS3, ProviderFTP} {
		if _, ok := s.backends[p]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}
