package main

import (
	"WaConsole/bot"
	"WaConsole/impl/core"
	"WaConsole/internal/config"
	"WaConsole/internal/conversation"
	"WaConsole/internal/database"
	"WaConsole/internal/http-server/api"
	"WaConsole/internal/lib/logger"
	"WaConsole/internal/lib/sl"
	"WaConsole/internal/service/gateway"
	"WaConsole/internal/service/templates"
	"WaConsole/internal/ws"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, *logPath)

	lg.Info("starting waconsole", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	if err := conf.CheckAccess(); err != nil {
		lg.Error("access configuration", sl.Err(err))
		os.Exit(1)
	}
	if conf.Listen.User == "" {
		lg.Warn("console is served without credentials", slog.Bool("allow_anonymous", true))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := core.New(lg, core.Options{
		PageSize:     conf.Pagination.PageSize,
		FetchTimeout: conf.Pagination.FetchTimeout,
		IndexWindow:  conf.Index.Window,
		OrdersWindow: conf.Index.OrdersWindow,
	})
	handler.SetRenderer(templates.Render)

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
	}
	if db != nil {
		if err = db.Ping(ctx); err != nil {
			lg.Error("mongo ping", sl.Err(err))
		}
		if err = db.EnsureIndexes(); err != nil {
			lg.Error("mongo indexes", sl.Err(err))
		}
		handler.SetSource(db)
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
			slog.String("replica_set", conf.Mongo.ReplicaSet),
		).Info("mongo client initialized")
	}

	gw := gateway.NewGatewayService(conf, lg)
	handler.SetSender(gw)
	lg.With(
		slog.String("url", conf.Gateway.BaseURL),
		sl.Secret("api_key", conf.Gateway.ApiKey),
	).Info("gateway service initialized")

	hub := ws.NewHub(lg)
	hub.SetHandler(handler)
	handler.SetPublisher(hub)
	handler.AddNotifier(hub)
	go hub.Run(ctx)

	if conf.Telegram.Enabled {
		tgBot, err := bot.NewTgBot(conf.Telegram.BotName, conf.Telegram.ApiKey, conf.Telegram.AdminId, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			handler.AddNotifier(tgBot)
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
				slog.Int64("admin_id", conf.Telegram.AdminId),
			).Info("telegram notifications enabled")
		}
	}

	gate, err := conversation.NewNotificationGate(templates.Render, conf.Notify.DedupTTL, conf.Notify.DedupMax)
	if err != nil {
		lg.Error("notification gate", sl.Err(err))
		return
	}
	defer gate.Close()

	if err = handler.Start(ctx, gate); err != nil {
		lg.Error("core start", sl.Err(err))
	}

	// *** blocking start with http server ***
	err = api.New(ctx, conf, lg, handler, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Info("service stopped")
}
