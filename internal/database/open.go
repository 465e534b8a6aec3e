// Package database selects the active persistence backend at startup.
package database

import (
	"context"
	"strings"

	"github.com/campusconnect/backend/internal/config"
	"github.com/campusconnect/backend/internal/storage"
	"github.com/campusconnect/backend/internal/storage/filestore"
	"github.com/campusconnect/backend/internal/storage/mongostore"
	"go.uber.org/zap"
)

// Open returns the document backend when a MongoDB URI is configured and the
// connection attempt succeeds, and the flat-file backend otherwise. A failed
// document-store connection is logged and falls back; it is never fatal.
func Open(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (storage.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(cfg.MongoURI) != "" {
		store, err := mongostore.Connect(ctx, cfg.MongoURI, logger)
		if err == nil {
			logger.Info("storage initialized", zap.String("mode", string(store.Kind())))
			return store, nil
		}
		logger.Warn("mongodb connection failed, falling back to file storage", zap.Error(err))
	}

	store, err := filestore.New(cfg.DataPath, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("storage initialized",
		zap.String("mode", string(store.Kind())),
		zap.String("path", cfg.DataPath))
	return store, nil
}
