// Package hid builds HID report descriptors (USB HID 1.11 §6.2.2) from a
// small tree of typed Item values, instead of hand-assembled byte literals.
// Every Item knows how to encode itself as one or more short items; Report
// walks the tree and concatenates the result.
package hid

import "bytes"

// ItemType is the two-bit item-type field of a short item's prefix byte.
type ItemType uint8

const (
	ItemTypeMain ItemType = iota
	ItemTypeGlobal
	ItemTypeLocal
)

// Main item tags.
const (
	tagInput         = 0x8
	tagOutput        = 0x9
	tagCollection    = 0xA
	tagFeature       = 0xB
	tagEndCollection = 0xC
)

// Global item tags.
const (
	tagUsagePage     = 0x0
	tagLogicalMin    = 0x1
	tagLogicalMax    = 0x2
	tagReportSize    = 0x7
	tagReportID      = 0x8
	tagReportCount   = 0x9
)

// Local item tags.
const (
	tagUsage        = 0x0
	tagUsageMinimum = 0x1
	tagUsageMaximum = 0x2
)

// Collection types (HID 1.11 §6.2.2.6).
const (
	CollectionPhysical   = 0x00
	CollectionApplication = 0x01
	CollectionLogical    = 0x02
	CollectionReport     = 0x03
	CollectionNamedArray = 0x04
	CollectionUsageSwitch = 0x05
	CollectionUsageModifier = 0x06
)

// Main item data bits (HID 1.11 §6.2.2.5). The "off" side of each bit is
// spelled out as a zero-valued constant purely for call-site readability.
const (
	MainData           = 0x00
	MainConst          = 0x01
	MainArray          = 0x00
	MainVar            = 0x02
	MainAbs            = 0x00
	MainRel            = 0x04
	MainNoWrap         = 0x00
	MainWrap           = 0x08
	MainLinear         = 0x00
	MainNonLinear      = 0x10
	MainPreferredState = 0x00
	MainNoPreferred    = 0x20
	MainNoNullPosition = 0x00
	MainNullState      = 0x40
	MainNonVolatile    = 0x00
	MainVolatile       = 0x80
)

// Usage page constants (HID Usage Tables 1.12).
const (
	UsagePageGenericDesktop = 0x01
	UsagePageKeyboard       = 0x07
	UsagePageLEDs           = 0x08
	UsagePageButton         = 0x09
	UsagePageConsumer       = 0x0C
	UsagePageDigitizer      = 0x0D
)

// Usages within the Generic Desktop page.
const (
	UsagePointer = 0x01
	UsageMouse   = 0x02
	UsageGamePad = 0x05
	UsageKeyboard = 0x06
	UsageX       = 0x30
	UsageY       = 0x31
	UsageZ       = 0x32
	UsageRz      = 0x35
	UsageWheel   = 0x38
)

// Usages within the Consumer page.
const UsageACPan = 0x0238

// Usages within the Digitizer page (HID Usage Tables §16), used by the
// touchpad/touchscreen multitouch descriptor.
const (
	UsageDigitizer    = 0x01
	UsageTouchScreen  = 0x04
	UsageTouchPad     = 0x05
	UsageFinger       = 0x22
	UsageTipSwitch    = 0x42
	UsageInRange      = 0x32
	UsageContactID    = 0x51
	UsageContactCount = 0x54
	UsageContactCountMaximum = 0x55
	UsageScanTime     = 0x56
)

// Item is one node of a report descriptor: a single short item, or a
// Collection containing a nested sequence of items.
type Item interface {
	Encode(b *bytes.Buffer)
}

// Data holds raw bytes for an AnyItem payload, or a raw global/local item
// not covered by a named helper below (e.g. Unit, Physical Minimum/Maximum).
type Data []byte

// AnyItem encodes a short item by its literal (type, tag) pair, for items
// the named helpers don't cover.
type AnyItem struct {
	Type ItemType
	Tag  uint8
	Data Data
}

func (a AnyItem) Encode(b *bytes.Buffer) { writeShortItem(b, a.Type, a.Tag, a.Data) }

type UsagePage struct{ Page uint16 }

func (u UsagePage) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeGlobal, tagUsagePage, encodeUnsigned(uint32(u.Page)))
}

type Usage struct{ Usage uint16 }

func (u Usage) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeLocal, tagUsage, encodeUnsigned(uint32(u.Usage)))
}

type UsageMinimum struct{ Min uint16 }

func (u UsageMinimum) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeLocal, tagUsageMinimum, encodeUnsigned(uint32(u.Min)))
}

type UsageMaximum struct{ Max uint16 }

func (u UsageMaximum) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeLocal, tagUsageMaximum, encodeUnsigned(uint32(u.Max)))
}

type LogicalMinimum struct{ Min int32 }

func (l LogicalMinimum) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeGlobal, tagLogicalMin, encodeSigned(int64(l.Min)))
}

type LogicalMaximum struct{ Max int32 }

func (l LogicalMaximum) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeGlobal, tagLogicalMax, encodeSigned(int64(l.Max)))
}

type ReportSize struct{ Bits uint32 }

func (r ReportSize) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeGlobal, tagReportSize, encodeUnsigned(r.Bits))
}

type ReportCount struct{ Count uint32 }

func (r ReportCount) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeGlobal, tagReportCount, encodeUnsigned(r.Count))
}

// ReportID emits a global Report ID item, prefixing every report this
// collection (and its children) describe with id on the wire.
type ReportID struct{ ID uint8 }

func (r ReportID) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeGlobal, tagReportID, encodeUnsigned(uint32(r.ID)))
}

type Collection struct {
	Kind  uint8
	Items []Item
}

func (c Collection) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeMain, tagCollection, []byte{c.Kind})
	for _, it := range c.Items {
		it.Encode(b)
	}
	writeShortItem(b, ItemTypeMain, tagEndCollection, nil)
}

type Input struct{ Flags uint16 }

func (i Input) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeMain, tagInput, encodeUnsigned(uint32(i.Flags)))
}

type Output struct{ Flags uint16 }

func (o Output) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeMain, tagOutput, encodeUnsigned(uint32(o.Flags)))
}

type Feature struct{ Flags uint16 }

func (f Feature) Encode(b *bytes.Buffer) {
	writeShortItem(b, ItemTypeMain, tagFeature, encodeUnsigned(uint32(f.Flags)))
}

// Report is a complete HID report descriptor, encoded item by item in
// declaration order.
type Report struct {
	Items []Item
}

// Bytes renders the full report descriptor.
func (r Report) Bytes() []byte {
	var b bytes.Buffer
	for _, it := range r.Items {
		it.Encode(&b)
	}
	return b.Bytes()
}

func writeShortItem(b *bytes.Buffer, typ ItemType, tag uint8, data []byte) {
	var size uint8
	switch len(data) {
	case 0:
		size = 0
	case 1:
		size = 1
	case 2:
		size = 2
	case 4:
		size = 3
	default:
		panic("hid: item data must be 0, 1, 2, or 4 bytes")
	}
	b.WriteByte((tag << 4) | (uint8(typ) << 2) | size)
	b.Write(data)
}

// encodeUnsigned picks the smallest short-item size (0/1/2/4 bytes, LE) that
// losslessly represents v, per HID 1.11 §6.2.2.2.
func encodeUnsigned(v uint32) []byte {
	switch {
	case v == 0:
		return nil
	case v <= 0xFF:
		return []byte{byte(v)}
	case v <= 0xFFFF:
		return []byte{byte(v), byte(v >> 8)}
	default:
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
}

// encodeSigned picks the smallest short-item size that losslessly represents
// the signed value v, used by Logical Minimum/Maximum which may be negative.
func encodeSigned(v int64) []byte {
	switch {
	case v >= -128 && v <= 127:
		return []byte{byte(int8(v))}
	case v >= -32768 && v <= 32767:
		u := uint16(int16(v))
		return []byte{byte(u), byte(u >> 8)}
	default:
		u := uint32(int32(v))
		return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
	}
}
