package postgres

import (
	"context"

	"github.com/Yashh56/relwave-app-sub001/pkg/adapters/datasource"
	"github.com/Yashh56/relwave-app-sub001/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Dialect:     "postgres",
			DisplayName: "PostgreSQL",
		},
		Connect: func(ctx context.Context, desc models.ConnectionDescriptor) (datasource.Adapter, error) {
			return NewAdapter(ctx, desc)
		},
	})
}
