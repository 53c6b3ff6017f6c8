//go:build windows

package api

import (
	"context"
	"log/slog"

	"github.com/ShadowBlip/InputPlumber-sub001/usbbus/usbip"
)

func attachLocalhostClientImpl(ctx context.Context, deviceExportMeta *usbip.ExportMeta, usbipServerPort uint16, useNative bool, logger *slog.Logger) error {
	if !useNative {
		return AttachLocalhostClient(ctx, deviceExportMeta, usbipServerPort, logger)
	}
	logger.Warn("native IOCTL auto-attach is not implemented, falling back to usbip.exe")
	return AttachLocalhostClient(ctx, deviceExportMeta, usbipServerPort, logger)
}

// CheckAutoAttachPrerequisites checks if auto-attach prerequisites are met on Windows.
func CheckAutoAttachPrerequisites(useNative bool, logger *slog.Logger) bool {
	if useNative {
		logger.Debug("native IOCTL auto-attach requested but not implemented; usbip.exe will be used, ensure it is installed and on PATH")
		return true
	}
	logger.Debug("using usbip.exe for auto-attach; ensure it is installed and on PATH")
	return true
}
