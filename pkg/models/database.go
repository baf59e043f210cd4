package models

import "time"

// Engine identifies a supported database engine.
type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineMySQL    Engine = "mysql"
	EngineMariaDB  Engine = "mariadb"
)

// Dialect returns the wire dialect used for query execution.
// MariaDB speaks the MySQL wire protocol, so both map to "mysql";
// migrations keep the three-way distinction for DDL generation.
func (e Engine) Dialect() string {
	if e == EngineMariaDB {
		return string(EngineMySQL)
	}
	return string(e)
}

// DefaultPort returns the conventional port for the engine.
func (e Engine) DefaultPort() int {
	if e == EnginePostgres {
		return 5432
	}
	return 3306
}

// Valid reports whether the engine is one of the supported values.
func (e Engine) Valid() bool {
	switch e {
	case EnginePostgres, EngineMySQL, EngineMariaDB:
		return true
	}
	return false
}

// DatabaseMeta is a registered database connection. Secrets are never stored
// here; CredentialID points into the separate encrypted credential file, and
// is present iff a password was ever supplied for this database.
type DatabaseMeta struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Host           string     `json:"host"`
	Port           int        `json:"port"`
	User           string     `json:"user"`
	Database       string     `json:"database"`
	Engine         Engine     `json:"engineType"`
	CredentialID   string     `json:"credentialId,omitempty"`
	SSL            *bool      `json:"ssl,omitempty"`
	SSLMode        string     `json:"sslmode,omitempty"`
	Tags           []string   `json:"tags"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
}

// DatabaseFile is the on-disk shape of databases.json.
type DatabaseFile struct {
	Version   int            `json:"version"`
	Databases []DatabaseMeta `json:"databases"`
}

// ConnectionDescriptor is the ephemeral, fully-resolved connection target.
// It carries the decrypted password and is never persisted.
type ConnectionDescriptor struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSL      bool
	SSLMode  string
}
