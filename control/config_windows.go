//go:build windows

package api

// platformOpts holds platform-specific auto-attach options.
type platformOpts struct {
	AutoAttachWindowsNative bool `help:"Request native IOCTL auto-attach (not implemented: usbip.exe is used either way)" default:"true" env:"INPUTPLUMBER_API_AUTO_ATTACH_WINDOWS_NATIVE"`
}
