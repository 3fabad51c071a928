package main

import (
	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/config"
	"github.com/septivank/rent-manager/internal/logging"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(logging.Config{ServiceName: cfg.ServiceName, Level: cfg.LogLevel})
}
