package main

import (
	"context"
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sharath-chandra-glean/peopleDateExporter/config"
	"github.com/sharath-chandra-glean/peopleDateExporter/syncer"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Error("Configuration error")
		os.Exit(1)
	}
	setupLogging(cfg.App.LogLevel)

	mode := "BULK"
	if !cfg.Glean.UseBulkIndex {
		mode = "INDIVIDUAL"
	}
	logrus.Infof("People Data Exporter - starting sync (indexing mode: %s)", mode)

	summary, err := syncer.NewFromConfig(cfg).Run(context.Background())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logrus.Info("Interrupted")
			os.Exit(0)
		}
		logrus.WithError(err).Error("Sync failed")
		os.Exit(1)
	}

	logrus.Infof("Users synced: %d, groups synced: %d", summary.UsersSynced, summary.GroupsSynced)
}

func setupLogging(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
