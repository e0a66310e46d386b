package handler

import (
	"github.com/Aequiternus/rtcs.io-storage/internal/app/chat"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/configs"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/metrics"
)

// AppDeps holds the dependencies shared by all handlers.
type AppDeps struct {
	Config  *configs.AppConfig
	Store   *store.Store
	Hub     *chat.Hub
	Metrics *metrics.Registry
}
