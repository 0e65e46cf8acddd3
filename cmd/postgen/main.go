package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/inkwell/portfolio/internal/devtools"
	"github.com/inkwell/portfolio/internal/utils"
	"github.com/inkwell/portfolio/pkg/file"
)

func main() {
	count := flag.Int("count", 1, "number of posts to generate")
	lang := flag.String("lang", "en", "post language: en or zh-tw")
	prefix := flag.String("prefix", "", "text prepended to every title")
	dir := flag.String("dir", utils.DefaultConfig().Content.PostsDir, "posts directory")
	dryRun := flag.Bool("dry-run", false, "print the files that would be written")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := utils.NewLogger(level, true, os.Stderr)

	generator := devtools.NewGenerator(file.NewFileService(), time.Now().UnixNano(), logger)
	posts, err := generator.Generate(devtools.GenerateOptions{
		Count:  *count,
		Lang:   *lang,
		Prefix: *prefix,
		Dir:    *dir,
		DryRun: *dryRun,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to generate posts")
		os.Exit(1)
	}
	if *dryRun {
		return
	}

	fmt.Printf("Generated %d post(s):\n", len(posts))
	for _, p := range posts {
		fmt.Printf(" - %s  ->  %s\n", p.Path, p.Title)
	}
}
