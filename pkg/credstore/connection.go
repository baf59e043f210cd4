package credstore

import (
	"os"
	"sync"

	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// BuildDescriptor derives the ephemeral connection target from stored
// metadata and a decrypted password. A zero port means "not specified" and
// falls back to the engine default; explicit port values pass through.
func BuildDescriptor(meta *models.DatabaseMeta, password string) models.ConnectionDescriptor {
	port := meta.Port
	if port == 0 {
		port = meta.Engine.DefaultPort()
	}

	ssl := false
	if meta.SSL != nil {
		ssl = *meta.SSL
	}

	return models.ConnectionDescriptor{
		Host:     resolveHost(meta.Host),
		Port:     port,
		User:     meta.User,
		Password: password,
		Database: meta.Database,
		SSL:      ssl,
		SSLMode:  meta.SSLMode,
	}
}

// Descriptor resolves the database's password (best-effort) and builds its
// connection descriptor.
func (s *Store) Descriptor(meta *models.DatabaseMeta) models.ConnectionDescriptor {
	password, _ := s.GetPassword(meta)
	return BuildDescriptor(meta, password)
}

var (
	inContainerOnce sync.Once
	inContainer     bool
)

// resolveHost rewrites loopback hosts when the bridge itself runs inside a
// container, so a stored "localhost" still reaches a database on the host
// machine. Containment is detected once via the /.dockerenv marker.
func resolveHost(host string) string {
	inContainerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inContainer = err == nil
	})
	return resolveHostFor(host, inContainer)
}

func resolveHostFor(host string, containerized bool) string {
	if !containerized {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1":
		return "host.docker.internal"
	}
	return host
}
