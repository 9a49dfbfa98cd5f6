//go:build wireinject

package main

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/x/group"
	"github.com/totegamma/groupsync/x/socket"
)

var groupServiceProvider = wire.NewSet(group.NewService, group.NewRepository)

func SetupSocketService(rdb *redis.Client, config core.Config) socket.Service {
	wire.Build(socket.NewService, socket.NewBridge)
	return nil
}

func SetupGroupService(store core.EventStore, mc *memcache.Client, signer core.Signer, relayer core.Relayer, config core.Config) core.GroupService {
	wire.Build(groupServiceProvider)
	return nil
}

func SetupGroupHandler(store core.EventStore, mc *memcache.Client, signer core.Signer, relayer core.Relayer, config core.Config) group.Handler {
	wire.Build(group.NewHandler, groupServiceProvider)
	return nil
}
