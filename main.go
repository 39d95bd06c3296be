package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"git.lost.host/meutraa/bmsplay/internal/config"
	"git.lost.host/meutraa/bmsplay/internal/game"
	"git.lost.host/meutraa/bmsplay/internal/library"
	"git.lost.host/meutraa/bmsplay/internal/logger"
	"git.lost.host/meutraa/bmsplay/internal/parser"
	"git.lost.host/meutraa/bmsplay/internal/vfs"
)

func main() {
	if err := run(os.Args[1:]); nil != err {
		log.Fatalln(err)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if nil != err {
		return err
	}

	lg, err := logger.New(loggerConfig(cfg))
	if nil != err {
		return err
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cfg.Command {
	case config.CommandPlay:
		return play(ctx, cfg, lg)
	case config.CommandInfo:
		return info(ctx, cfg, lg)
	case config.CommandHash:
		return hash(ctx, cfg, lg)
	case config.CommandScan:
		return scan(ctx, cfg, lg)
	}
	return fmt.Errorf("unknown command %q", cfg.Command)
}

func loggerConfig(cfg *config.Config) logger.Config {
	lc := logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	// the interactive player owns the terminal, it only logs to a file
	if cfg.Command != config.CommandPlay || cfg.Headless {
		lc.Console = os.Stderr
	}
	return lc
}

func parserOptions(cfg *config.Config) (parser.Options, error) {
	enc, err := parser.Charset(cfg.Charset)
	if nil != err {
		return parser.Options{}, err
	}
	return parser.Options{Charset: enc, Seed: cfg.Seed}, nil
}

// openChart reads a chart and returns the provider of its assets.
func openChart(ctx context.Context, cfg *config.Config, chart string) ([]byte, vfs.FileSystem, error) {
	if !strings.HasPrefix(chart, "s3://") {
		content, err := os.ReadFile(chart)
		if nil != err {
			return nil, nil, fmt.Errorf("unable to read chart: %w", err)
		}
		return content, vfs.NewDir(filepath.Dir(chart)), nil
	}

	bucket, dir, name, err := vfs.ParseObjectURL(chart)
	if nil != err {
		return nil, nil, err
	}
	client, err := vfs.NewMinioClient(cfg.S3)
	if nil != err {
		return nil, nil, err
	}
	fs := vfs.NewBucket(client, bucket, dir)
	entry, err := fs.Open(ctx, name)
	if nil != err {
		return nil, nil, fmt.Errorf("unable to open chart: %w", err)
	}
	content, err := entry.ReadAllBytes(ctx)
	if nil != err {
		return nil, nil, err
	}
	return content, fs, nil
}

func chartType(chart string) (game.FileType, error) {
	ft, ok := game.FileTypeFromPath(path.Base(chart))
	if !ok {
		return 0, &parser.FormatError{Path: chart, Err: fmt.Errorf("%w: unknown extension", parser.ErrFormat)}
	}
	return ft, nil
}

func info(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	opts, err := parserOptions(cfg)
	if nil != err {
		return err
	}
	content, fs, err := openChart(ctx, cfg, cfg.Chart)
	if nil != err {
		return err
	}
	defer fs.Close()

	e, err := library.Describe(content, cfg.Chart, opts, parser.NewHashGenerator(nil, nil))
	if nil != err {
		return err
	}
	fmt.Printf("%-10s %v\n", "title", e.Title)
	fmt.Printf("%-10s %v\n", "artist", e.Artist)
	fmt.Printf("%-10s %v\n", "genre", e.Genre)
	fmt.Printf("%-10s %v\n", "type", e.Type)
	fmt.Printf("%-10s %v\n", "level", e.PlayLevel)
	fmt.Printf("%-10s %v\n", "notes", e.Notes)
	fmt.Printf("%-10s %v\n", "duration", e.Duration)
	fmt.Printf("%-10s %v\n", "hash", e.Hash)
	return nil
}

func hash(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	opts, err := parserOptions(cfg)
	if nil != err {
		return err
	}
	ft, err := chartType(cfg.Chart)
	if nil != err {
		return err
	}
	enc, err := parser.Charset(cfg.Encoding)
	if nil != err {
		return err
	}
	algo, err := parser.HashAlgorithm(cfg.Algorithm)
	if nil != err {
		return err
	}
	content, fs, err := openChart(ctx, cfg, cfg.Chart)
	if nil != err {
		return err
	}
	defer fs.Close()

	src, err := parser.Normalize(content, cfg.Chart, ft, opts)
	if nil != err {
		return err
	}
	sum, err := parser.NewHashGenerator(enc, algo).GetHash(src.Lines)
	if nil != err {
		return err
	}
	fmt.Println(sum)
	return nil
}

func scan(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	opts, err := parserOptions(cfg)
	if nil != err {
		return err
	}
	lib, err := library.Open(cfg.Library, lg.Named("library"))
	if nil != err {
		return err
	}
	defer lib.Close()

	s := library.NewScanner(lib, lg.Named("scan"), opts, parser.NewHashGenerator(nil, nil), cfg.Workers)
	n, err := s.Scan(ctx, cfg.Directory)
	fmt.Printf("indexed %d charts\n", n)
	if nil != err {
		lg.Warn("some charts were not indexed", zap.Error(err))
	}
	return nil
}
