package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	"github.com/goliatone/forecast-dashboard/components/forecast/commands"
	fcrouter "github.com/goliatone/forecast-dashboard/components/forecast/gorouter"
	"github.com/goliatone/forecast-dashboard/components/forecast/httpapi"
	"github.com/goliatone/forecast-dashboard/components/forecast/queries"
	"github.com/goliatone/forecast-dashboard/pkg/activity"
	"github.com/goliatone/forecast-dashboard/pkg/gateway/supabase"
	"github.com/goliatone/forecast-dashboard/pkg/storage"
)

type cli struct {
	Serve serveCmd `cmd:"" default:"1" help:"Run the forecast dashboard server."`
}

type serveCmd struct {
	Config string `type:"path" help:"Path to the YAML configuration file."`
	Addr   string `help:"Listen address, overrides the configured one."`
}

func main() {
	_ = godotenv.Load()
	ctx := kong.Parse(&cli{},
		kong.Description("Customer forecast dashboard server."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

func (cmd *serveCmd) Run(ctx context.Context) error {
	cfg, err := LoadConfig(cmd.Config)
	if err != nil {
		return err
	}
	if cmd.Addr != "" {
		cfg.Server.Addr = cmd.Addr
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	gateway, err := supabase.New(supabase.Config{
		BaseURL: cfg.Supabase.URL,
		APIKey:  cfg.Supabase.APIKey,
		Table:   cfg.Supabase.Table,
		Bucket:  cfg.Supabase.Bucket,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	var files forecast.FileStore = gateway
	if cfg.Storage.Driver == "minio" {
		minioStore, err := storage.NewMinIOStore(storage.MinIOConfig{
			Endpoint:  cfg.Storage.MinIO.Endpoint,
			AccessKey: cfg.Storage.MinIO.AccessKey,
			SecretKey: cfg.Storage.MinIO.SecretKey,
			Bucket:    cfg.Storage.MinIO.Bucket,
			UseSSL:    cfg.Storage.MinIO.UseSSL,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		files = minioStore
	}

	store := forecast.NewStore()
	hook := forecast.NewBroadcastHook()

	auditLog := activity.HookFunc(func(_ context.Context, evt activity.Event) error {
		logger.WithFields(logrus.Fields{
			"verb":    evt.Verb,
			"object":  evt.ObjectID,
			"channel": evt.Channel,
		}).Info("submission activity")
		return nil
	})
	emitter := activity.NewEmitter(activity.Hooks{auditLog}, activity.Config{Enabled: true})

	coordOpts := forecast.Options{
		Gateway:  gateway,
		Files:    files,
		Store:    store,
		Hook:     hook,
		Activity: activity.Recorder{Emitter: emitter},
		Logger:   logger,
	}
	if cfg.Realtime.Enabled {
		coordOpts.Realtime = gateway
	}
	coordinator := forecast.NewCoordinator(coordOpts)
	defer coordinator.Close()

	if err := coordinator.Reload(ctx); err != nil {
		return err
	}
	coordinator.StartRealtime(ctx)

	renderer, err := forecast.NewTemplateRenderer()
	if err != nil {
		return err
	}
	var sessions forecast.SessionChecker
	if cfg.Auth.RequireSession {
		sessions = gateway
	}
	controller := forecast.NewController(renderer, store, sessions, cfg.Server.BasePath)

	chartOpts := []forecast.ChartRendererOption{
		forecast.WithChartCache(forecast.NewChartCache(cfg.Charts.CacheTTL)),
	}
	if cfg.Charts.Theme != "" {
		chartOpts = append(chartOpts, forecast.WithChartTheme(cfg.Charts.Theme))
	}
	if cfg.Charts.AssetsHost != "" {
		chartOpts = append(chartOpts, forecast.WithChartAssetsHost(cfg.Charts.AssetsHost))
	}
	charts := forecast.NewChartRenderer(chartOpts...)

	preferences := forecast.NewInMemoryPreferenceStore()
	executor := &httpapi.CommandExecutor{
		SaveCmd:       commands.NewSaveSubmissionCommand(coordinator, nil),
		DeleteCmd:     commands.NewDeleteSubmissionCommand(coordinator, nil),
		StatusCmd:     commands.NewSetStatusCommand(coordinator, nil),
		FilterCmd:     commands.NewSetFilterCommand(coordinator, preferences, nil),
		ReloadCmd:     commands.NewReloadCommand(coordinator, nil),
		RenameFileCmd: commands.NewRenameFileCommand(coordinator, nil),
		RemoveFileCmd: commands.NewRemoveFileCommand(coordinator, nil),
	}

	server := router.NewFiberAdapter()
	if err := fcrouter.Register(fcrouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: controller,
		API:        executor,
		Rows:       queries.NewRowsQuery(store),
		Charts:     queries.NewChartsQuery(store, charts),
		Choices:    queries.NewChoicesQuery(store),
		Summary:    queries.NewSummaryQuery(store),
		Files:      coordinator,
		Broadcast:  hook,
		BasePath:   cfg.Server.BasePath,
	}); err != nil {
		return err
	}

	logger.WithField("addr", cfg.Server.Addr).Info("forecast dashboard listening")
	return server.Serve(cfg.Server.Addr)
}
