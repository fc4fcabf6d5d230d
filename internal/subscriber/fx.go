package subscriber

import (
	"github.com/coursegate/coursegate/internal/subscriber/repository"
	"github.com/coursegate/coursegate/internal/subscriber/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscriber.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
