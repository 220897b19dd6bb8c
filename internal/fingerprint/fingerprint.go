// Package fingerprint identifies the installation environment the warning
// history belongs to.
//
// The fingerprint combines the OS installation identity, the absolute
// installation path and the loader version. A change in any of them means the
// user reinstalled something, so old warning history no longer applies.
package fingerprint

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"

	"modcheck/internal/logging"
)

// Provider reports an opaque identity of the OS installation.
type Provider interface {
	OSInstallID(ctx context.Context) (string, error)
}

// SystemProvider reads the identity from the running system. On Windows this
// is the registry InstallDate, elsewhere (and as a fallback) the host id.
type SystemProvider struct{}

// OSInstallID implements Provider.
func (SystemProvider) OSInstallID(ctx context.Context) (string, error) {
	if date, err := installDate(); err == nil && date != "" {
		return "installdate:" + date, nil
	}

	id, err := host.HostIDWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read host id: %w", err)
	}
	if id == "" {
		return "", errors.New("host id is empty")
	}
	return "hostid:" + id, nil
}

// Static is a Provider returning a fixed identity.
type Static string

// OSInstallID implements Provider.
func (s Static) OSInstallID(context.Context) (string, error) { return string(s), nil }

// Compute derives the fingerprint. The result is a 40 character hex digest.
func Compute(installPath, osID, loaderVersion string) string {
	h := sha1.New()
	for _, part := range []string{normalizePath(installPath), osID, loaderVersion} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Resolve asks the provider for the OS identity and computes the
// fingerprint. A provider failure is logged and treated as an empty identity.
func Resolve(ctx context.Context, p Provider, installPath, loaderVersion string, logger *zap.Logger) string {
	log := logging.For(logger, logging.CategoryBoot)

	osID, err := p.OSInstallID(ctx)
	if err != nil {
		log.Warn("OS install identity unavailable", zap.Error(err))
		osID = ""
	}

	fp := Compute(installPath, osID, loaderVersion)
	log.Debug("Environment fingerprint",
		zap.String("install_path", installPath),
		zap.String("loader_version", loaderVersion),
		zap.Bool("os_id_known", osID != ""),
		zap.String("fingerprint", fp))
	return fp
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	return foldCase(filepath.Clean(p))
}
