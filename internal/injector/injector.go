//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/scenewalk/internal/config"
	"github.com/zeusync/scenewalk/internal/core/inspector"
)

func InitializeSession(ctx context.Context, cfg config.Config) (*inspector.Session, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
