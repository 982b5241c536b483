package app

import (
	"go.uber.org/fx"

	"github.com/orderview/orderview/internal/cache"
	"github.com/orderview/orderview/internal/config"
	"github.com/orderview/orderview/internal/database"
	"github.com/orderview/orderview/internal/logger"
	"github.com/orderview/orderview/internal/messaging"
	"github.com/orderview/orderview/internal/observability"
	repositoryorder "github.com/orderview/orderview/internal/repository/order"
	repositoryorderquery "github.com/orderview/orderview/internal/repository/orderquery"
	grpcserver "github.com/orderview/orderview/internal/server/grpc"
	httpserver "github.com/orderview/orderview/internal/server/http"
	serviceorder "github.com/orderview/orderview/internal/service/order"
	transporthttp "github.com/orderview/orderview/internal/transport/http"
	"github.com/orderview/orderview/internal/worker"
	workerorder "github.com/orderview/orderview/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	repositoryorderquery.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP plus the gRPC health
// surface).
var Module = fx.Options(
	HTTP,
	grpcserver.Module,
)
