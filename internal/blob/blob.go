// Package blob stores uploaded and generated files (resident pictures, group
// letterhead templates, exported protocols) behind a driver-agnostic Store.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fkhayef/grpprotocol/internal/apperr"
	"github.com/fkhayef/grpprotocol/internal/blob/core"
	"github.com/fkhayef/grpprotocol/internal/blob/fs"
	"github.com/fkhayef/grpprotocol/internal/blob/memory"
	"github.com/fkhayef/grpprotocol/internal/blob/s3"
	"github.com/fkhayef/grpprotocol/internal/config"
)

type (
	Store      = core.Store
	Info       = core.Info
	PutOptions = core.PutOptions
	Driver     = core.Driver
)

var ErrNotFound = core.ErrNotFound

var (
	ErrInvalidImage = apperr.Validation("Ungültiges Bildformat. Erlaubt sind .jpg, .jpeg, .png und .gif.")
	ErrInvalidPDF   = apperr.Validation("Die Vorlage muss eine PDF-Datei sein.")
	ErrFileMissing  = apperr.NotFound("Datei nicht gefunden.")
)

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Open selects a Store implementation from configuration.
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(core.DriverFilesystem)
	}
	switch core.Driver(driver) {
	case core.DriverFilesystem:
		return fs.New(cfg.Root, cfg.PublicURL)
	case core.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// ValidateImageExt checks filename against the accepted picture extensions and
// returns the matching content type.
func ValidateImageExt(filename string) (string, error) {
	ct, ok := imageExts[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrInvalidImage
	}
	return ct, nil
}

// ValidatePDFExt accepts only .pdf filenames.
func ValidatePDFExt(filename string) error {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		return ErrInvalidPDF
	}
	return nil
}

// NewKey builds a collision-free key under prefix that keeps the upload's
// extension, e.g. "residents/4/3f2c...e1.png".
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return strings.TrimSuffix(prefix, "/") + "/" + uuid.NewString() + ext
}

// ReadAll fetches the whole object at key. A missing object yields ErrFileMissing.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, Info, error) {
	info, rc, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, Info{}, ErrFileMissing
		}
		return nil, Info{}, fmt.Errorf("failed to read blob: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, Info{}, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, info, nil
}
