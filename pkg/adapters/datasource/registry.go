package datasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

// AdapterInfo describes a registered engine for UI discovery.
type AdapterInfo struct {
	Dialect     string `json:"dialect"`      // "postgres", "mysql"
	DisplayName string `json:"display_name"` // "PostgreSQL", "MySQL / MariaDB"
}

// Registration pairs engine info with its connect function.
type Registration struct {
	Info    AdapterInfo
	Connect ConnectFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each adapter package's init().
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Dialect] = reg
}

// RegisteredAdapters returns info for all registered engines.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// Connect dispatches on the engine's wire dialect and opens an adapter.
// MariaDB resolves to the mysql dialect here; only migration DDL keeps the
// three-way engine distinction.
func Connect(ctx context.Context, engine models.Engine, desc models.ConnectionDescriptor) (Adapter, error) {
	dialect := engine.Dialect()

	registryMu.RLock()
	reg, ok := registry[dialect]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported engine %q (dialect %q not registered)", engine, dialect)
	}
	return reg.Connect(ctx, desc)
}
