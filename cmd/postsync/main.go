package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/inkwell/portfolio/internal/devtools"
	"github.com/inkwell/portfolio/internal/utils"
	"github.com/inkwell/portfolio/pkg/backend"
	"github.com/inkwell/portfolio/pkg/file"
	"github.com/inkwell/portfolio/pkg/jwt"
)

func main() {
	defaults := utils.DefaultConfig()
	if err := defaults.ApplyEnv(os.LookupEnv); err != nil {
		bootLog := utils.NewLogger("info", true, os.Stderr)
		bootLog.Fatal().Err(err).Msg("Invalid environment")
	}

	token := flag.String("token", "", "bearer token, defaults to AUTH_TOKEN")
	tokenFile := flag.String("token-file", "", "file holding the bearer token")
	dir := flag.String("dir", defaults.Content.PostsDir, "posts directory")
	backendURL := flag.String("backend", defaults.Backend.URL, "backend base URL")
	retries := flag.Int("retries", defaults.Timeouts.RetryAttempts, "retries after a failed batch")
	flag.Parse()

	logger := utils.NewLogger(defaults.Logging.Level, true, os.Stderr)
	fileClient := file.NewFileService()
	tokens := jwt.NewJWTManager(fileClient, nil)

	bearer := utils.FirstNonEmpty(*token, flag.Arg(0), os.Getenv("AUTH_TOKEN"))
	if bearer == "" && *tokenFile != "" {
		loaded, err := tokens.LoadJWT(*tokenFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", *tokenFile).Msg("Failed to read token file")
		}
		bearer = loaded
	}

	api, err := backend.NewClient(backend.Options{
		BaseURL:      *backendURL,
		WriteTimeout: defaults.Timeouts.Write,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create backend client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := devtools.NewBlogSyncer(api, fileClient, tokens, logger)
	report, err := syncer.Sync(ctx, devtools.SyncOptions{
		Dir:           *dir,
		Token:         bearer,
		RetryAttempts: *retries,
	})
	report.Print(os.Stdout)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to sync blogs")
		stop()
		os.Exit(1)
	}
}
