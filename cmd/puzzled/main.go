package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/puzzles-in-golang/puzzlefeed"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	seed := flag.Int64("seed", 0, "seed for the puzzle stream (0 uses the current time)")
	logLevel := flag.String("log-level", "info", "debug|info|warn|error")
	flag.Parse()

	log := logrus.New()
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		log.WithField("level", *logLevel).Fatal("unknown log level")
	}
	log.SetLevel(level)

	server := puzzlefeed.NewServer(puzzlefeed.Config{
		Addr:       *addr,
		RandomSeed: *seed,
		LogLevel:   *logLevel,
	})
	if err := server.Start(); err != nil {
		log.WithError(err).Fatal("start puzzle feed")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := server.Stop(); err != nil {
		log.WithError(err).Error("stop puzzle feed")
	}
}
