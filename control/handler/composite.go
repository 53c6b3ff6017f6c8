// Package handler implements the control-surface command handlers from
// spec.md §6, following the teacher's control/handler house style: each
// command is a HandlerFunc-returning constructor closing over the
// dependency it needs, JSON-marshaling its result into res.JSON and
// wrapping failures with the api/error helpers.
package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/ShadowBlip/InputPlumber-sub001/apitypes"
	api "github.com/ShadowBlip/InputPlumber-sub001/control"
	apierror "github.com/ShadowBlip/InputPlumber-sub001/control/error"
	"github.com/ShadowBlip/InputPlumber-sub001/composite"
	"github.com/ShadowBlip/InputPlumber-sub001/manager"
	"github.com/ShadowBlip/InputPlumber-sub001/native"
)

func compositeFromRequest(m *manager.Manager, req *api.Request) (*composite.CompositeDevice, error) {
	id, ok := req.Params["id"]
	if !ok {
		return nil, apierror.ErrBadRequest("missing composite id")
	}
	cd, ok := m.CompositeByID(id)
	if !ok {
		return nil, apierror.ErrNotFound("no such composite device: " + id)
	}
	return cd, nil
}

// Name answers CompositeDevice/{id}/Name.
func Name(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		body, _ := json.Marshal(apitypes.NameResponse{Name: cd.GetName()})
		res.JSON = string(body)
		return nil
	}
}

// ProfileName answers CompositeDevice/{id}/ProfileName.
func ProfileName(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		body, _ := json.Marshal(apitypes.NameResponse{Name: cd.GetProfileName()})
		res.JSON = string(body)
		return nil
	}
}

func capabilityStrings(caps map[native.Capability]struct{}) []string {
	out := make([]string, 0, len(caps))
	for c := range caps {
		out = append(out, c.String())
	}
	return out
}

// Capabilities answers CompositeDevice/{id}/Capabilities.
func Capabilities(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		body, _ := json.Marshal(apitypes.CapabilitiesResponse{Capabilities: capabilityStrings(cd.GetCapabilities())})
		res.JSON = string(body)
		return nil
	}
}

// TargetCapabilities answers CompositeDevice/{id}/TargetCapabilities/{path}.
func TargetCapabilities(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		path, ok := req.Params["path"]
		if !ok {
			return apierror.ErrBadRequest("missing target path")
		}
		caps := cd.GetTargetCapabilities(path)
		if caps == nil {
			return apierror.ErrNotFound("no such target device: " + path)
		}
		body, _ := json.Marshal(apitypes.CapabilitiesResponse{Capabilities: capabilityStrings(caps)})
		res.JSON = string(body)
		return nil
	}
}

// SourceDevicePaths answers CompositeDevice/{id}/SourceDevicePaths.
func SourceDevicePaths(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		body, _ := json.Marshal(apitypes.PathsResponse{Paths: cd.GetSourceDevicePaths()})
		res.JSON = string(body)
		return nil
	}
}

// TargetDevicePaths answers CompositeDevice/{id}/TargetDevices.
func TargetDevicePaths(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		body, _ := json.Marshal(apitypes.PathsResponse{Paths: cd.GetTargetDevicePaths()})
		res.JSON = string(body)
		return nil
	}
}

// DBusDevices answers CompositeDevice/{id}/DBusDevices: the subset of target
// paths currently routed through the dbus overlay.
func DBusDevices(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		var dbusPaths []string
		for _, path := range cd.GetTargetDevicePaths() {
			if dev, ok := m.TargetByPath(path); ok && dev.Capabilities() == nil {
				dbusPaths = append(dbusPaths, path)
			}
		}
		body, _ := json.Marshal(apitypes.PathsResponse{Paths: dbusPaths})
		res.JSON = string(body)
		return nil
	}
}

// GetInterceptMode answers a read of CompositeDevice/{id}/InterceptMode.
func GetInterceptMode(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		body, _ := json.Marshal(apitypes.InterceptModeResponse{Mode: cd.GetInterceptMode().String()})
		res.JSON = string(body)
		return nil
	}
}

// SetInterceptMode answers a write of CompositeDevice/{id}/InterceptMode.
func SetInterceptMode(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		var body apitypes.InterceptModeRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest("malformed intercept mode request: " + err.Error())
		}
		mode, err := composite.ParseInterceptMode(body.Mode)
		if err != nil {
			return apierror.ErrBadRequest(err.Error())
		}
		cd.SetInterceptMode(mode)
		return nil
	}
}

// Stop answers CompositeDevice/{id}/Stop.
func Stop(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		cd.Stop()
		return nil
	}
}

// LoadProfilePath answers CompositeDevice/{id}/LoadProfilePath.
func LoadProfilePath(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		var body apitypes.LoadProfilePathRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest("malformed profile path request: " + err.Error())
		}
		if err := cd.LoadProfilePath(body.Path); err != nil {
			return apierror.ErrBadRequest("load profile: " + err.Error())
		}
		return nil
	}
}

// SetTargetDevices answers CompositeDevice/{id}/SetTargetDevices.
func SetTargetDevices(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		var body apitypes.SetTargetDevicesRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest("malformed target devices request: " + err.Error())
		}
		cd.SetTargetDevices(body.Types)
		return nil
	}
}

func eventValueToNative(v apitypes.EventValue) native.InputValue {
	switch {
	case v.Bool != nil:
		return native.Bool(*v.Bool)
	case v.Float != nil:
		return native.Float(*v.Float)
	case v.TouchIndex != nil || v.IsTouching != nil || v.Pressure != nil:
		touching := v.IsTouching != nil && *v.IsTouching
		var index uint8
		if v.TouchIndex != nil {
			index = *v.TouchIndex
		}
		return native.Touch(index, touching, v.X, v.Y, v.Pressure)
	case v.Z != nil:
		return native.Vector3(v.X, v.Y, v.Z)
	case v.X != nil || v.Y != nil:
		return native.Vector2(v.X, v.Y)
	default:
		return native.Bool(false)
	}
}

// SendEvent answers CompositeDevice/{id}/SendEvent.
func SendEvent(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		var body apitypes.SendEventRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest("malformed send event request: " + err.Error())
		}
		cap, err := native.ParseCapability(body.Capability)
		if err != nil {
			return apierror.ErrBadRequest("parse capability: " + err.Error())
		}
		cd.WriteSendEvent(native.NewEvent(cap, eventValueToNative(body.Value)))
		return nil
	}
}

// SendButtonChord answers CompositeDevice/{id}/SendButtonChord.
func SendButtonChord(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		var body apitypes.SendButtonChordRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest("malformed chord request: " + err.Error())
		}
		caps := make([]native.Capability, 0, len(body.Capabilities))
		for _, s := range body.Capabilities {
			cap, err := native.ParseCapability(s)
			if err != nil {
				return apierror.ErrBadRequest("parse capability: " + err.Error())
			}
			caps = append(caps, cap)
		}
		cd.WriteChordEvent(caps)
		return nil
	}
}

// SetInterceptActivation answers CompositeDevice/{id}/SetInterceptActivation.
func SetInterceptActivation(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		cd, err := compositeFromRequest(m, req)
		if err != nil {
			return err
		}
		var body apitypes.SetInterceptActivationRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest("malformed activation request: " + err.Error())
		}
		members := make([]native.Capability, 0, len(body.Members))
		for _, s := range body.Members {
			cap, err := native.ParseCapability(s)
			if err != nil {
				return apierror.ErrBadRequest("parse capability: " + err.Error())
			}
			members = append(members, cap)
		}
		target, err := native.ParseCapability(body.Target)
		if err != nil {
			return apierror.ErrBadRequest("parse target capability: " + err.Error())
		}
		cd.SetInterceptActivation(members, target)
		return nil
	}
}
