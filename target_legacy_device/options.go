package device

// CreateOptions carries the overrides a manager may apply when constructing
// a virtual device, layered on top of its package-level default descriptor.
type CreateOptions struct {
	IdVendor  *uint16
	IdProduct *uint16
	// SubType selects among a device's descriptor variants (e.g. the Xbox
	// 360 XUSB sub-device type byte); nil keeps the package default.
	SubType *uint8
}
