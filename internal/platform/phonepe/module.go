package phonepe

import "go.uber.org/fx"

// Module exposes the gateway client via Fx.
var Module = fx.Options(
	fx.Provide(NewClient),
)
