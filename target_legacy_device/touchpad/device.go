// Package touchpad provides a single-contact HID digitizer touchpad device
// implementation, built the same way device/keyboard and device/mouse build
// their standard-HID descriptors: a hid.Report item tree rather than a
// hand-assembled byte literal, since (unlike the Xbox 360/DualShock4) this
// device has no vendor-class report layout to mirror.
package touchpad

import (
	"sync"
	"sync/atomic"

	device "github.com/ShadowBlip/InputPlumber-sub001/target_legacy_device"
	"github.com/ShadowBlip/InputPlumber-sub001/usbbus/usb"
	"github.com/ShadowBlip/InputPlumber-sub001/usbbus/usb/hid"
	"github.com/ShadowBlip/InputPlumber-sub001/usbbus/usbip"
)

// NoContact is the wire sentinel ContactIdentifier value meaning "no active
// contact", analogous to evdev's ABS_MT_TRACKING_ID=-1.
const NoContact = 0xFF

// AxisMax is the logical maximum both X and Y report fields encode to,
// matching the normalized [0,1] capability range 1:1 scaled.
const AxisMax = 32767

// InputState is the touchpad's current single-contact sample. X/Y retain
// their last value across a release; only Touching and ContactID change.
type InputState struct {
	ContactID uint8 // NoContact when not touching
	X, Y      uint16
	Touching  bool
	ScanTime  uint16
}

// BuildReport encodes InputState into the wire layout the descriptor below
// declares: ReportID, flags, contact id, x, y, scan time, contact count.
func (s InputState) BuildReport() []byte {
	b := make([]byte, 10)
	b[0] = 0x01 // ReportID
	if s.Touching {
		b[1] = 0x01 | 0x02 // Tip Switch | In Range
	}
	b[2] = s.ContactID
	b[3] = byte(s.X)
	b[4] = byte(s.X >> 8)
	b[5] = byte(s.Y)
	b[6] = byte(s.Y >> 8)
	b[7] = byte(s.ScanTime)
	b[8] = byte(s.ScanTime >> 8)
	if s.Touching {
		b[9] = 1
	}
	return b
}

// Touchpad implements the Device interface for a standalone single-contact
// touch surface (spec.md §4.2's touchpad target type).
type Touchpad struct {
	tick       uint64
	inputState *InputState
	stateMu    sync.Mutex
	descriptor usb.Descriptor
}

// New returns a new Touchpad device.
func New(o *device.CreateOptions) (*Touchpad, error) {
	d := &Touchpad{descriptor: defaultDescriptor}
	if o != nil {
		if o.IdVendor != nil {
			d.descriptor.Device.IDVendor = *o.IdVendor
		}
		if o.IdProduct != nil {
			d.descriptor.Device.IDProduct = *o.IdProduct
		}
	}
	return d, nil
}

// UpdateInputState updates the device's current input state (thread-safe).
func (t *Touchpad) UpdateInputState(state InputState) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	t.inputState = &state
}

// HandleTransfer implements interrupt IN for Touchpad.
func (t *Touchpad) HandleTransfer(ep uint32, dir uint32, out []byte) []byte {
	if dir == usbip.DirIn && ep == 1 {
		atomic.AddUint64(&t.tick, 1)
		t.stateMu.Lock()
		var st InputState
		if t.inputState != nil {
			st = *t.inputState
		} else {
			st.ContactID = NoContact
		}
		t.stateMu.Unlock()
		return st.BuildReport()
	}
	return nil
}

// reportDescriptor is a single-contact USB HID Digitizer Touch Pad
// descriptor (HID Usage Tables §16): Tip Switch/In Range flags, an 8-bit
// Contact Identifier, 16-bit X/Y, a 16-bit Scan Time, and a Contact Count.
var reportDescriptor = hid.Report{
	Items: []hid.Item{
		hid.UsagePage{Page: hid.UsagePageDigitizer},
		hid.Usage{Usage: hid.UsageTouchPad},
		hid.Collection{Kind: hid.CollectionApplication, Items: []hid.Item{
			hid.ReportID{ID: 0x01},
			hid.Usage{Usage: hid.UsageFinger},
			hid.Collection{Kind: hid.CollectionPhysical, Items: []hid.Item{
				hid.Usage{Usage: hid.UsageTipSwitch},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 1},
				hid.ReportSize{Bits: 1},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
				hid.Usage{Usage: hid.UsageInRange},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
				hid.ReportSize{Bits: 6},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainConst},
				hid.Usage{Usage: hid.UsageContactID},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 255},
				hid.ReportSize{Bits: 8},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
				hid.UsagePage{Page: hid.UsagePageGenericDesktop},
				hid.Usage{Usage: hid.UsageX},
				hid.Usage{Usage: hid.UsageY},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: AxisMax},
				hid.ReportSize{Bits: 16},
				hid.ReportCount{Count: 2},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
				hid.UsagePage{Page: hid.UsagePageDigitizer},
				hid.Usage{Usage: hid.UsageScanTime},
				hid.LogicalMinimum{Min: 0},
				hid.LogicalMaximum{Max: 65535},
				hid.ReportSize{Bits: 16},
				hid.ReportCount{Count: 1},
				hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
			}},
			hid.Usage{Usage: hid.UsageContactCount},
			hid.LogicalMinimum{Min: 0},
			hid.LogicalMaximum{Max: 1},
			hid.ReportSize{Bits: 8},
			hid.ReportCount{Count: 1},
			hid.Input{Flags: hid.MainData | hid.MainVar | hid.MainAbs},
		}},
	},
}

var defaultDescriptor = usb.Descriptor{
	Device: usb.DeviceDescriptor{
		BcdUSB:             0x0200,
		BDeviceClass:       0x00,
		BDeviceSubClass:    0x00,
		BDeviceProtocol:    0x00,
		BMaxPacketSize0:    0x40,
		IDVendor:           0x2E8A,
		IDProduct:          0x0012,
		BcdDevice:          0x0100,
		IManufacturer:      0x01,
		IProduct:           0x02,
		ISerialNumber:      0x03,
		BNumConfigurations: 0x01,
		Speed:              2,
	},
	Interfaces: []usb.InterfaceConfig{
		{
			Descriptor: usb.InterfaceDescriptor{
				BInterfaceNumber:   0x00,
				BAlternateSetting:  0x00,
				BNumEndpoints:      0x01,
				BInterfaceClass:    0x03, // HID
				BInterfaceSubClass: 0x00,
				BInterfaceProtocol: 0x00,
				IInterface:         0x00,
			},
			HID: &usb.HIDFunction{
				Descriptor: usb.HIDDescriptor{
					BcdHID:       0x0111,
					BCountryCode: 0x00,
					Descriptors: []usb.HIDSubDescriptor{
						{Type: usb.ReportDescType},
					},
				},
				Report: reportDescriptor,
			},
			Endpoints: []usb.EndpointDescriptor{
				{
					BEndpointAddress: 0x81,
					BMAttributes:     0x03, // Interrupt
					WMaxPacketSize:   0x0010,
					BInterval:        0x04, // 4 ms, matches the raw-HID source poll cadence
				},
			},
		},
	},
	Strings: map[uint8]string{
		0: "\x04\x09", // LangID: en-US (0x0409)
		1: "InputPlumber",
		2: "HID Touchpad",
		3: "1337",
	},
}

func (t *Touchpad) GetDescriptor() *usb.Descriptor {
	return &t.descriptor
}

func (t *Touchpad) GetDeviceSpecificArgs() map[string]any {
	return map[string]any{}
}
