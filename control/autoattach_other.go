//go:build !linux && !windows

package api

import "log/slog"

// CheckAutoAttachPrerequisites reports whether auto-attach can work on this
// platform. Only Linux (vhci-hcd) and Windows (usbip.exe) are supported; everywhere else auto-attach is unavailable.
func CheckAutoAttachPrerequisites(_ bool, logger *slog.Logger) bool {
	logger.Warn("auto-attach is not supported on this platform")
	return false
}
