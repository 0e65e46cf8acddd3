package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/inkwell/portfolio/internal/constants"
	"github.com/inkwell/portfolio/internal/fallback"
	"github.com/inkwell/portfolio/internal/loaders"
	"github.com/inkwell/portfolio/internal/metrics"
	"github.com/inkwell/portfolio/internal/service_registry"
	"github.com/inkwell/portfolio/internal/services"
	"github.com/inkwell/portfolio/internal/utils"
	"github.com/inkwell/portfolio/pkg/backend"
	"github.com/inkwell/portfolio/pkg/content"
	"github.com/inkwell/portfolio/pkg/file"
	"github.com/inkwell/portfolio/pkg/markdown"
	"github.com/inkwell/portfolio/pkg/mqtt"
	"github.com/inkwell/portfolio/pkg/s3"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	flag.Parse()

	bootLog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// A missing default config file means defaults plus environment.
	path := *configPath
	if path == defaultConfigPath {
		if exists, _ := fileClient.IsFileExists(path); !exists {
			path = ""
		}
	}
	config, err := utils.LoadConfig(path, fileClient)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := utils.NewLogger(config.Logging.Level, config.Logging.Pretty, os.Stdout)
	logger.Info().
		Str("env", config.App.Env).
		Str("backend", config.Backend.URL).
		Str("version", config.App.Version).
		Msg("Configuration loaded")

	// Telemetry
	recorder := metrics.NewRecorder()
	if config.Metrics.Enabled {
		system := metrics.NewSystemCollector(metrics.ResourceOptions{
			MonitorCPU:        config.Metrics.MonitorCPU,
			MonitorMemory:     config.Metrics.MonitorMemory,
			MonitorDisk:       config.Metrics.MonitorDisk,
			MonitorGoroutines: config.Metrics.MonitorGoroutines,
			DiskPath:          config.Content.PostsDir,
		}, logger)
		if err := recorder.Register(system); err != nil {
			logger.Fatal().Err(err).Msg("Failed to register resource gauges")
		}
	}

	// Backend API and the loading layer on top of it
	api, err := backend.NewClient(backend.Options{
		BaseURL:       config.Backend.URL,
		HealthTimeout: config.Timeouts.HealthCheck,
		WriteTimeout:  config.Timeouts.Write,
		MinVersion:    config.Backend.MinVersion,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create backend client")
	}
	monitor := fallback.NewHealthMonitor(api, config.Timeouts.HealthCacheTTL, logger, recorder)
	fb := fallback.New(monitor, config.Timeouts.BackgroundSync, logger, recorder)

	store := content.NewStore(content.Options{
		PostsDir:  config.Content.PostsDir,
		PagesDir:  config.Content.PagesDir,
		PhotosDir: config.Content.PhotosDir,
		Workers:   config.Content.Workers,
	}, fileClient, logger)

	// Optional broker mirror of content events
	var publisher services.EventPublisher
	if config.Events.MQTT.Broker != "" {
		clientID := config.Events.MQTT.ClientID + "-" + uuid.New().String()
		mqttClient := mqtt.NewMqttService(fileClient)
		err := mqttClient.Initialize(config.Events.MQTT.Broker, clientID, config.Events.MQTT.CACertificate, config.Events.MQTT.PublishTimeout)
		if err != nil {
			logger.Warn().Err(err).Str("broker", config.Events.MQTT.Broker).Msg("MQTT unavailable, content events stay local")
		} else {
			logger.Info().Str("client_id", clientID).Msg("Connected to MQTT broker")
			publisher = mqttClient
			defer mqttClient.Disconnect(250)
		}
	}
	hub := services.NewUpdateHub(publisher, services.HubOptions{
		Topic:          config.Events.MQTT.Topic,
		QOS:            byte(config.Events.MQTT.QOS),
		PublishTimeout: config.Events.MQTT.PublishTimeout,
	}, logger)

	// Optional bucket-backed gallery
	var bucket loaders.BucketPhotoSource
	if config.Storage.S3.Enabled {
		storage := s3.NewObjectStorage(config.Storage.S3.PublicURL, utils.SliceToSet(constants.PhotoExtensions))
		if err := storage.Connect(config.Storage.S3.Endpoint, config.Storage.S3.AccessKey, config.Storage.S3.SecretKey, config.Storage.S3.UseSSL); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create object storage client")
		}
		bucket = storage
	}

	devSamples := config.Features.DevSampleData && config.IsDevelopment()
	blogLoader := loaders.NewBlogLoader(fb, api, store, loaders.BlogOptions{
		ListTimeout:   config.Timeouts.ListFetch,
		FetchTimeout:  config.Timeouts.Fetch,
		DevSampleData: devSamples,
	}, logger)
	pageLoader := loaders.NewPageLoader(fb, api, store, hub, config.Timeouts.BackgroundSync, logger)
	photoLoader := loaders.NewPhotoLoader(fb, store, bucket, loaders.PhotoOptions{
		Bucket:  config.Storage.S3.Bucket,
		Prefix:  config.Storage.S3.Prefix,
		Timeout: config.Timeouts.Fetch,
	}, logger)

	site, err := services.NewSite(blogLoader, pageLoader, photoLoader, markdown.NewRenderer(), monitor, services.SiteOptions{
		Title:       config.Content.SiteTitle,
		Description: config.Content.SiteDescription,
		URL:         config.Content.SiteURL,
		FeedLang:    config.Content.FeedLanguage,
		PhotosDir:   config.Content.PhotosDir,
		CommentsURL: config.Backend.WSURL,
		Version:     config.App.Version,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse templates")
	}
	site.Hub = hub
	if config.Metrics.Enabled {
		site.Metrics = recorder.Handler()
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(logger)
	if err := serviceRegistry.RegisterServices(config, service_registry.Dependencies{
		Monitor: monitor,
		Hub:     hub,
		Handler: site.Routes(),
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register services")
	}

	if err := serviceRegistry.StartServices(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Bool("dev_samples", devSamples).Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		logger.Error().Err(err).Msg("Some services did not stop cleanly")
	}
	fb.Wait()
}
