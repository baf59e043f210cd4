// Package credstore persists registered databases and their encrypted
// credentials, serving reads through a short-lived memory cache.
package credstore

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Yashh56/relwave-app-sub001/pkg/apperrors"
	"github.com/Yashh56/relwave-app-sub001/pkg/crypto"
	"github.com/Yashh56/relwave-app-sub001/pkg/fsutil"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

const (
	databasesFile   = "databases.json"
	credentialsFile = ".credentials"

	fileVersion = 1
)

// Store owns databases.json and the encrypted credential map. Metadata and
// credentials live in separate files so listing databases never touches (or
// decrypts) a secret. All reads go through a TTL cache; every write path
// invalidates the cache before returning, so readers never observe a stale
// value after a completed write.
type Store struct {
	dir    string
	cipher *crypto.CredentialCipher
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.RWMutex
	cached   []models.DatabaseMeta
	cachedAt time.Time
}

// AddParams is the payload for registering a database.
type AddParams struct {
	Name     string        `json:"name"`
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	User     string        `json:"user"`
	Password string        `json:"password,omitempty"`
	Database string        `json:"database"`
	Engine   models.Engine `json:"engineType"`
	SSL      *bool         `json:"ssl,omitempty"`
	SSLMode  string        `json:"sslmode,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
}

// UpdateParams is a partial patch; nil fields are left unchanged.
type UpdateParams struct {
	Name     *string        `json:"name,omitempty"`
	Host     *string        `json:"host,omitempty"`
	Port     *int           `json:"port,omitempty"`
	User     *string        `json:"user,omitempty"`
	Password *string        `json:"password,omitempty"`
	Database *string        `json:"database,omitempty"`
	Engine   *models.Engine `json:"engineType,omitempty"`
	SSL      *bool          `json:"ssl,omitempty"`
	SSLMode  *string        `json:"sslmode,omitempty"`
	Tags     *[]string      `json:"tags,omitempty"`
}

// New creates the store and preloads the cache once, so the first RPC does
// not pay the disk read.
func New(dir string, cipher *crypto.CredentialCipher, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		dir:    dir,
		cipher: cipher,
		ttl:    ttl,
		logger: logger,
	}
	s.mu.Lock()
	s.cached = s.loadDatabases()
	s.cachedAt = time.Now()
	s.mu.Unlock()
	return s
}

// List returns all registered databases.
func (s *Store) List() []models.DatabaseMeta {
	dbs := s.snapshot()
	out := make([]models.DatabaseMeta, len(dbs))
	copy(out, dbs)
	return out
}

// Get returns the database with the given id, or nil if unknown.
func (s *Store) Get(id string) *models.DatabaseMeta {
	for _, db := range s.snapshot() {
		if db.ID == id {
			cp := db
			return &cp
		}
	}
	return nil
}

// Add registers a database, always under a fresh UUID. When a password is
// supplied it is encrypted under a new credential id; the returned metadata
// never embeds the plaintext.
func (s *Store) Add(p AddParams) (*models.DatabaseMeta, error) {
	now := time.Now().UTC()
	meta := models.DatabaseMeta{
		ID:        uuid.NewString(),
		Name:      p.Name,
		Host:      p.Host,
		Port:      p.Port,
		User:      p.User,
		Database:  p.Database,
		Engine:    p.Engine,
		SSL:       p.SSL,
		SSLMode:   p.SSLMode,
		Tags:      p.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}

	if p.Password != "" {
		credID := "db_" + meta.ID
		if err := s.storeCredential(credID, p.Password); err != nil {
			return nil, err
		}
		meta.CredentialID = credID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dbs := append(s.loadDatabases(), meta)
	if err := s.saveDatabases(dbs); err != nil {
		return nil, err
	}
	s.repopulate(dbs)

	s.logger.Info("Registered database",
		zap.String("id", meta.ID),
		zap.String("name", meta.Name),
		zap.String("engine", string(meta.Engine)))

	return &meta, nil
}

// Update merges the patch over the existing record and bumps updatedAt.
// A present Password is re-encrypted under the database's credential id
// (minting one if the record never had a secret).
func (s *Store) Update(id string, p UpdateParams) (*models.DatabaseMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbs := s.loadDatabases()
	idx := -1
	for i := range dbs {
		if dbs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("update %s: %w", id, apperrors.ErrDatabaseNotFound)
	}

	meta := &dbs[idx]
	if p.Name != nil {
		meta.Name = *p.Name
	}
	if p.Host != nil {
		meta.Host = *p.Host
	}
	if p.Port != nil {
		meta.Port = *p.Port
	}
	if p.User != nil {
		meta.User = *p.User
	}
	if p.Database != nil {
		meta.Database = *p.Database
	}
	if p.Engine != nil {
		meta.Engine = *p.Engine
	}
	if p.SSL != nil {
		meta.SSL = p.SSL
	}
	if p.SSLMode != nil {
		meta.SSLMode = *p.SSLMode
	}
	if p.Tags != nil {
		meta.Tags = *p.Tags
	}
	meta.UpdatedAt = time.Now().UTC()

	if p.Password != nil && *p.Password != "" {
		credID := meta.CredentialID
		if credID == "" {
			credID = "db_" + meta.ID
		}
		if err := s.storeCredential(credID, *p.Password); err != nil {
			return nil, err
		}
		meta.CredentialID = credID
	}

	if err := s.saveDatabases(dbs); err != nil {
		return nil, err
	}
	s.repopulate(dbs)

	cp := *meta
	return &cp, nil
}

// Delete removes the metadata entry and, best-effort, its credential.
// Metadata removal is the source of truth for "database gone": a failing
// credential cleanup is logged but does not roll the delete back.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbs := s.loadDatabases()
	idx := -1
	for i := range dbs {
		if dbs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("delete %s: %w", id, apperrors.ErrDatabaseNotFound)
	}

	credID := dbs[idx].CredentialID
	dbs = append(dbs[:idx], dbs[idx+1:]...)
	if err := s.saveDatabases(dbs); err != nil {
		return err
	}
	s.repopulate(dbs)

	if credID != "" {
		if err := s.removeCredential(credID); err != nil {
			s.logger.Warn("Failed to remove credential for deleted database",
				zap.String("id", id),
				zap.String("credential_id", credID),
				zap.Error(err))
		}
	}
	return nil
}

// GetPassword returns the decrypted password for the database, or ok=false
// when there is no stored secret or it cannot be decrypted. Callers that
// just want a best-effort connection treat false as "try passwordless".
func (s *Store) GetPassword(meta *models.DatabaseMeta) (string, bool) {
	if meta == nil || meta.CredentialID == "" {
		return "", false
	}
	creds := s.loadCredentials()
	enc, ok := creds[meta.CredentialID]
	if !ok {
		return "", false
	}
	plain, err := s.cipher.Decrypt(enc)
	if err != nil {
		s.logger.Warn("Failed to decrypt credential, proceeding without password",
			zap.String("credential_id", meta.CredentialID),
			zap.Error(err))
		return "", false
	}
	return plain, true
}

// TouchLastAccessed records a connection attempt against the database.
// Best-effort; failures are logged and ignored.
func (s *Store) TouchLastAccessed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbs := s.loadDatabases()
	for i := range dbs {
		if dbs[i].ID == id {
			now := time.Now().UTC()
			dbs[i].LastAccessedAt = &now
			if err := s.saveDatabases(dbs); err != nil {
				s.logger.Warn("Failed to record last access", zap.String("id", id), zap.Error(err))
				return
			}
			s.repopulate(dbs)
			return
		}
	}
}

// snapshot returns the cached database list, reloading it when the TTL has
// elapsed.
func (s *Store) snapshot() []models.DatabaseMeta {
	s.mu.RLock()
	if time.Since(s.cachedAt) < s.ttl {
		dbs := s.cached
		s.mu.RUnlock()
		return dbs
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.cachedAt) >= s.ttl {
		s.cached = s.loadDatabases()
		s.cachedAt = time.Now()
	}
	return s.cached
}

// repopulate replaces the cache after a successful write. Callers hold mu.
func (s *Store) repopulate(dbs []models.DatabaseMeta) {
	s.cached = dbs
	s.cachedAt = time.Now()
}

// loadDatabases reads databases.json. A missing or corrupt file is treated
// as an empty set: the store fails open so a damaged install can still
// register databases, at the cost of orphaning unreadable entries.
func (s *Store) loadDatabases() []models.DatabaseMeta {
	var f models.DatabaseFile
	ok, err := fsutil.ReadJSON(filepath.Join(s.dir, databasesFile), &f)
	if err != nil {
		s.logger.Warn("Unreadable databases file, treating as empty", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return f.Databases
}

func (s *Store) saveDatabases(dbs []models.DatabaseMeta) error {
	f := models.DatabaseFile{Version: fileVersion, Databases: dbs}
	if err := fsutil.WriteJSONAtomic(filepath.Join(s.dir, databasesFile), f, 0o644); err != nil {
		return fmt.Errorf("persist databases: %w", err)
	}
	return nil
}

// loadCredentials reads the credential map, failing open like loadDatabases.
func (s *Store) loadCredentials() map[string]string {
	creds := make(map[string]string)
	if _, err := fsutil.ReadJSON(filepath.Join(s.dir, credentialsFile), &creds); err != nil {
		s.logger.Warn("Unreadable credentials file, treating as empty", zap.Error(err))
		return map[string]string{}
	}
	return creds
}

func (s *Store) saveCredentials(creds map[string]string) error {
	// Owner-only: this file holds ciphertext, but there is no reason to
	// let other accounts read it at all.
	if err := fsutil.WriteJSONAtomic(filepath.Join(s.dir, credentialsFile), creds, 0o600); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

func (s *Store) storeCredential(credID, password string) error {
	enc, err := s.cipher.Encrypt(password)
	if err != nil {
		return fmt.Errorf("encrypt credential: %w", err)
	}
	creds := s.loadCredentials()
	creds[credID] = enc
	return s.saveCredentials(creds)
}

func (s *Store) removeCredential(credID string) error {
	creds := s.loadCredentials()
	if _, ok := creds[credID]; !ok {
		return nil
	}
	delete(creds, credID)
	return s.saveCredentials(creds)
}
