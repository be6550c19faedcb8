package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/gops/agent"
	"github.com/rs/zerolog"
	"github.com/viant/odbview/oid"
	"github.com/viant/odbview/service"
)

func main() {
	startGops()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "stats":
		statsCmd(os.Args[2:])
	case "page":
		pageCmd(os.Args[2:])
	case "record":
		recordCmd(os.Args[2:])
	case "classes":
		classesCmd(os.Args[2:])
	case "class":
		classCmd(os.Args[2:])
	case "cache":
		cacheCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: odbview <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  stats    Record count, engine and page size")
	fmt.Fprintln(os.Stderr, "  page     Browse records in storage order")
	fmt.Fprintln(os.Stderr, "  record   Decode one record by object id")
	fmt.Fprintln(os.Stderr, "  classes  Record counts per class")
	fmt.Fprintln(os.Stderr, "  class    Browse decoded records of one class")
	fmt.Fprintln(os.Stderr, "  cache    Manage the class index (build|delete|info)")
}

// common holds flags shared by every command.
type common struct {
	dbPath     *string
	configPath *string
	logLevel   *string
	fromFile   *bool
}

func commonFlags(flags *flag.FlagSet) *common {
	return &common{
		dbPath:     flags.String("db", "", "object database path (required)"),
		configPath: flags.String("config", "", "config yaml (optional)"),
		logLevel:   flags.String("log-level", "", "log level: debug|info|warn|error"),
		fromFile:   flags.Bool("from-file", false, "treat --db as captured dump output"),
	}
}

func (c *common) requireDB(cmd string) string {
	if *c.dbPath == "" {
		log.Fatalf("%s: --db is required", cmd)
	}
	return *c.dbPath
}

func (c *common) service(ctx context.Context) *service.Service {
	cfg := &service.Config{}
	if *c.configPath != "" {
		loaded, err := service.LoadConfig(*c.configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}
	if *c.logLevel != "" {
		cfg.Log.Level = *c.logLevel
	}
	if *c.fromFile {
		cfg.Dump.FromFile = true
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(cfg.Level()).With().Timestamp().Logger()
	opts, err := cfg.Options(ctx)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	svc, err := service.NewService(append(opts, service.WithLogger(logger))...)
	if err != nil {
		log.Fatalf("service init: %v", err)
	}
	return svc
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func statsCmd(args []string) {
	flags := flag.NewFlagSet("stats", flag.ExitOnError)
	c := commonFlags(flags)
	flags.Parse(args)
	dbPath := c.requireDB("stats")

	ctx, cancel := signalContext()
	defer cancel()
	svc := c.service(ctx)
	defer func() { _ = svc.Close() }()
	stats, err := svc.Stats(ctx, &service.StatsRequest{DBPath: dbPath})
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	printJSON(stats)
}

func pageCmd(args []string) {
	flags := flag.NewFlagSet("page", flag.ExitOnError)
	c := commonFlags(flags)
	page := flags.Int("page", 0, "zero-based page number")
	pageSize := flags.Int("size", 50, "records per page")
	detail := flags.Bool("detail", false, "decode every field")
	flags.Parse(args)
	dbPath := c.requireDB("page")

	ctx, cancel := signalContext()
	defer cancel()
	svc := c.service(ctx)
	defer func() { _ = svc.Close() }()
	result, err := svc.Page(ctx, &service.PageRequest{DBPath: dbPath, Page: *page, PageSize: *pageSize, Detail: *detail})
	if err != nil {
		log.Fatalf("page: %v", err)
	}
	printJSON(result)
}

func recordCmd(args []string) {
	flags := flag.NewFlagSet("record", flag.ExitOnError)
	c := commonFlags(flags)
	id := flags.String("oid", "", "object id: 0x-prefixed hex, decimal or dump key (required)")
	flags.Parse(args)
	dbPath := c.requireDB("record")
	if *id == "" {
		log.Fatalf("record: --oid is required")
	}
	parsed, err := oid.Parse(*id)
	if err != nil {
		log.Fatalf("record: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	svc := c.service(ctx)
	defer func() { _ = svc.Close() }()
	result, err := svc.Record(ctx, &service.RecordRequest{DBPath: dbPath, OID: parsed})
	if err != nil {
		log.Fatalf("record: %v", err)
	}
	printJSON(result)
}

func classesCmd(args []string) {
	flags := flag.NewFlagSet("classes", flag.ExitOnError)
	c := commonFlags(flags)
	forceScan := flags.Bool("scan", false, "ignore the index and scan the dump")
	flags.Parse(args)
	dbPath := c.requireDB("classes")

	ctx, cancel := signalContext()
	defer cancel()
	svc := c.service(ctx)
	defer func() { _ = svc.Close() }()
	result, err := svc.Classes(ctx, &service.ClassesRequest{DBPath: dbPath, Scan: *forceScan})
	if err != nil {
		log.Fatalf("classes: %v", err)
	}
	printJSON(result)
}

func classCmd(args []string) {
	flags := flag.NewFlagSet("class", flag.ExitOnError)
	c := commonFlags(flags)
	class := flags.String("name", "", "class name (required)")
	page := flags.Int("page", 0, "zero-based page number")
	pageSize := flags.Int("size", 50, "records per page")
	known := flags.String("known-total", "", "class total from a previous classes call (optional)")
	flags.Parse(args)
	dbPath := c.requireDB("class")
	if *class == "" {
		log.Fatalf("class: --name is required")
	}
	req := &service.ClassPageRequest{DBPath: dbPath, Class: *class, Page: *page, PageSize: *pageSize}
	if *known != "" {
		total, err := strconv.Atoi(strings.TrimSpace(*known))
		if err != nil || total < 0 {
			log.Fatalf("class: invalid --known-total %q", *known)
		}
		req.KnownTotal = &total
	}

	ctx, cancel := signalContext()
	defer cancel()
	svc := c.service(ctx)
	defer func() { _ = svc.Close() }()
	result, err := svc.ClassPage(ctx, req)
	if err != nil {
		log.Fatalf("class: %v", err)
	}
	printJSON(result)
}

func cacheCmd(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: odbview cache build|delete|info [options]")
		os.Exit(2)
	}
	action := args[0]
	flags := flag.NewFlagSet("cache "+action, flag.ExitOnError)
	c := commonFlags(flags)
	progress := flags.Bool("progress", false, "show build progress")
	flags.Parse(args[1:])
	dbPath := c.requireDB("cache")

	ctx, cancel := signalContext()
	defer cancel()
	svc := c.service(ctx)
	defer func() { _ = svc.Close() }()
	req := &service.CacheRequest{DBPath: dbPath}
	switch action {
	case "build":
		job, err := svc.BuildCache(ctx, &service.BuildRequest{DBPath: dbPath, Progress: progressPrinter(*progress)})
		if err != nil {
			log.Fatalf("cache build: %v", err)
		}
		select {
		case <-job.Done():
		case <-ctx.Done():
			job.Cancel()
			<-job.Done()
		}
		if *progress {
			fmt.Fprintln(os.Stderr)
		}
		info, err := job.Result()
		if err != nil {
			log.Fatalf("cache build: %v", err)
		}
		printJSON(info)
	case "delete":
		if err := svc.DeleteCache(ctx, req); err != nil {
			log.Fatalf("cache delete: %v", err)
		}
	case "info":
		info, err := svc.CacheInfo(ctx, req)
		if err != nil {
			log.Fatalf("cache info: %v", err)
		}
		printJSON(info)
	default:
		log.Fatalf("cache: unknown action %q", action)
	}
}

func progressPrinter(enabled bool) func(rows int) {
	if !enabled {
		return nil
	}
	return func(rows int) {
		fmt.Fprintf(os.Stderr, "\rindexed %d records", rows)
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(data))
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}
