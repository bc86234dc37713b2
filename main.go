package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"quantship-deployment/internal/config"
	"quantship-deployment/internal/deploy"
	"quantship-deployment/internal/logger"
)

func main() {
	var (
		specPath   string
		sourceRoot string
		version    string
	)
	pflag.StringVar(&specPath, "spec", "./deploy.toml", "path to the deployment spec file")
	pflag.StringVar(&sourceRoot, "source", ".", "source tree the artifact is built from")
	pflag.StringVar(&version, "version", "", "override the version tag from the spec file")
	pflag.Parse()

	appLogger := logger.Initialize()
	appLogger.Info("quantship deployment starting")

	spec, err := config.LoadSpec(specPath)
	if err != nil {
		appLogger.WithError(err).Error("Failed to load deployment spec")
		os.Exit(1)
	}

	if version != "" {
		spec.Version = version
		if err := spec.Validate(); err != nil {
			appLogger.WithError(err).Error("Invalid deployment spec")
			os.Exit(1)
		}
	}

	orchestrator := deploy.NewDefault(sourceRoot)
	result := orchestrator.Run(context.Background(), uuid.NewString(), spec)

	if !result.Succeeded {
		fmt.Fprintf(os.Stderr, "deployment failed at stage %s: %s\n", result.Stage, result.Message)
		os.Exit(1)
	}

	appLogger.WithField("version", spec.Version).Info("Deployment succeeded")
}
