package hotmart

import (
	"github.com/coursegate/coursegate/internal/config"
	entitlementdomain "github.com/coursegate/coursegate/internal/entitlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the club lookup collaborator. Without credentials the
// lookup stays nil and entitlement checks rely on local storage only.
var Module = fx.Module("hotmart.client",
	fx.Provide(func(cfg config.Config, log *zap.Logger) entitlementdomain.ClubLookup {
		if !cfg.Hotmart.Enabled || cfg.Hotmart.BasicAuth == "" {
			log.Info("hotmart client disabled, entitlement checks are local only")
			return nil
		}
		return NewClient(cfg.Hotmart)
	}),
)
