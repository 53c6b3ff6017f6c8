//go:build !windows

package api

// platformOpts holds platform-specific auto-attach options. Non-Windows
// targets drive auto-attach entirely through the usbip CLI tool, so there
// are no extra flags here.
type platformOpts struct{}
