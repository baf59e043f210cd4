package credstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

func TestBuildDescriptorPortDefaults(t *testing.T) {
	tests := []struct {
		name     string
		engine   models.Engine
		port     int
		wantPort int
	}{
		{name: "postgres default", engine: models.EnginePostgres, port: 0, wantPort: 5432},
		{name: "mysql default", engine: models.EngineMySQL, port: 0, wantPort: 3306},
		{name: "mariadb default", engine: models.EngineMariaDB, port: 0, wantPort: 3306},
		{name: "explicit port wins", engine: models.EnginePostgres, port: 5433, wantPort: 5433},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := &models.DatabaseMeta{
				Host:     "localhost",
				Port:     tt.port,
				User:     "u",
				Database: "d",
				Engine:   tt.engine,
			}
			desc := BuildDescriptor(meta, "pw")
			assert.Equal(t, tt.wantPort, desc.Port)
			assert.Equal(t, "pw", desc.Password)
		})
	}
}

func TestBuildDescriptorSSL(t *testing.T) {
	ssl := true
	meta := &models.DatabaseMeta{
		Host:    "db.example.com",
		Engine:  models.EnginePostgres,
		SSL:     &ssl,
		SSLMode: "verify-full",
	}
	desc := BuildDescriptor(meta, "")
	assert.True(t, desc.SSL)
	assert.Equal(t, "verify-full", desc.SSLMode)
	assert.Equal(t, "db.example.com", desc.Host)
}

func TestResolveHostForContainer(t *testing.T) {
	tests := []struct {
		host          string
		containerized bool
		want          string
	}{
		{host: "localhost", containerized: true, want: "host.docker.internal"},
		{host: "127.0.0.1", containerized: true, want: "host.docker.internal"},
		{host: "db.example.com", containerized: true, want: "db.example.com"},
		{host: "localhost", containerized: false, want: "localhost"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveHostFor(tt.host, tt.containerized), tt.host)
	}
}
