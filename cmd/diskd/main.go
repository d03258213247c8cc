// Command diskd wires the disk I/O engine into a standalone process: it
// starts the engine, logs every response it emits, and exits cleanly on
// SIGINT/SIGTERM. It exists to exercise the engine the way
// a real daemon would, not as the product itself.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	"github.com/kraken-torrent/diskd/internal/diskio"
	"github.com/kraken-torrent/diskd/utils/log"
)

func main() {
	sessionDir := flag.String("session_dir", "", "directory for serialized torrent resume data")
	downloadDir := flag.String("download_dir", "", "root directory torrent content is written under")
	timeSlice := flag.Duration("time_slice", 10*time.Millisecond, "max duration a single job runs before yielding")
	fileCacheCap := flag.Int("file_cache_capacity", 200, "max open file handles held by the file cache")
	flag.Parse()

	if *sessionDir == "" || *downloadDir == "" {
		panic("must specify non-empty -session_dir and -download_dir")
	}

	logger, err := log.New(log.Config{}, map[string]interface{}{"component": "diskd"})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log.Configure(logger)

	stats := tally.NoopScope

	config := diskio.Config{
		SessionDir:        *sessionDir,
		DownloadDir:       *downloadDir,
		TimeSlice:         *timeSlice,
		FileCacheCapacity: *fileCacheCap,
	}

	engine, err := diskio.New(config, nil, logger.Sugar(), stats)
	if err != nil {
		log.Errorf("Failed to start disk engine: %s", err)
		os.Exit(1)
	}

	go func() {
		for resp := range engine.Responses() {
			logResponse(logger, resp)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down disk engine")
	engine.Stop()
}

func logResponse(logger *zap.Logger, resp diskio.Response) {
	switch r := resp.(type) {
	case diskio.ErrorResponse:
		logger.Sugar().Errorf("Disk job failed: %s", r.Err)
	default:
		logger.Sugar().Debugf("Disk job response: %+v", r)
	}
}
