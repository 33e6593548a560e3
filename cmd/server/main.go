package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sharath-chandra-glean/peopleDateExporter/config"
	"github.com/sharath-chandra-glean/peopleDateExporter/web"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Error("Configuration error")
		os.Exit(1)
	}

	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	verifier := &web.TokenInfoVerifier{Endpoint: web.DefaultTokenInfoEndpoint}
	checker := web.NewAllowlistChecker(splitList(os.Getenv("SYNC_ALLOWED_INVOKERS")))
	auth := web.NewAuthenticator(verifier, checker, func() (string, error) {
		if cfg.Server.ProjectID == "" {
			return "", fmt.Errorf("project identity not configured; set AUTH_PROJECT_ID or GOOGLE_CLOUD_PROJECT")
		}
		return cfg.Server.ProjectID, nil
	})

	server := web.NewServer(cfg.Server.Port, auth)
	if err := server.Start(); err != nil {
		logrus.WithError(err).Fatal("HTTP server stopped")
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
