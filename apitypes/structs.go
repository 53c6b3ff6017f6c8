// Package apitypes defines the JSON request/response payloads carried by
// control/'s length-prefixed command protocol, per spec.md §6's control
// surface.
package apitypes

import "fmt"

// ApiError represents an RFC 7807 (problem+json) error response.
type ApiError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e ApiError) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

// NameResponse answers Name/ProfileName.
type NameResponse struct {
	Name string `json:"name"`
}

// CapabilitiesResponse answers Capabilities/TargetCapabilities: the
// capability strings native.Capability.String() formats.
type CapabilitiesResponse struct {
	Capabilities []string `json:"capabilities"`
}

// PathsResponse answers SourceDevicePaths/TargetDevicePaths/DBusDevices.
type PathsResponse struct {
	Paths []string `json:"paths"`
}

// InterceptModeResponse answers a GetInterceptMode read.
type InterceptModeResponse struct {
	Mode string `json:"mode"`
}

// InterceptModeRequest carries a SetInterceptMode write.
type InterceptModeRequest struct {
	Mode string `json:"mode"`
}

// LoadProfilePathRequest carries LoadProfilePath's payload.
type LoadProfilePathRequest struct {
	Path string `json:"path"`
}

// SetTargetDevicesRequest carries SetTargetDevices' payload.
type SetTargetDevicesRequest struct {
	Types []string `json:"types"`
}

// EventValue is the wire form of a native.InputValue: exactly one variant's
// fields are populated, matching the capability's own value shape.
type EventValue struct {
	Bool       *bool    `json:"bool,omitempty"`
	Float      *float64 `json:"float,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Z          *float64 `json:"z,omitempty"`
	TouchIndex *uint8   `json:"touchIndex,omitempty"`
	IsTouching *bool    `json:"isTouching,omitempty"`
	Pressure   *float64 `json:"pressure,omitempty"`
}

// SendEventRequest carries WriteSendEvent's payload.
type SendEventRequest struct {
	Capability string     `json:"capability"`
	Value      EventValue `json:"value"`
}

// SendButtonChordRequest carries WriteChordEvent's payload: capability
// strings pressed in order, then released in reverse.
type SendButtonChordRequest struct {
	Capabilities []string `json:"capabilities"`
}

// SetInterceptActivationRequest carries SetInterceptActivation's payload.
type SetInterceptActivationRequest struct {
	Members []string `json:"members"`
	Target  string   `json:"target"`
}
