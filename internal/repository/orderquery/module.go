package orderquery

import "go.uber.org/fx"

// Module provides the projection repository to Fx.
var Module = fx.Provide(NewRepository)
