package memcache_fx

import (
	mem "chatbill/pkg/memcache"

	"go.uber.org/fx"
)

var Module = fx.Provide(provideTokenStore)

func provideTokenStore() mem.TokenStore {
	return mem.NewTokens()
}
