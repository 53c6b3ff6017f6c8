package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/ShadowBlip/InputPlumber-sub001/apitypes"
	api "github.com/ShadowBlip/InputPlumber-sub001/control"
	apierror "github.com/ShadowBlip/InputPlumber-sub001/control/error"
	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/ShadowBlip/InputPlumber-sub001/target"
	"github.com/ShadowBlip/InputPlumber-sub001/target/kernelbus"
	"github.com/ShadowBlip/InputPlumber-sub001/manager"
)

func targetFromRequest(m *manager.Manager, req *api.Request) (target.Device, error) {
	typeID, id := req.Params["type"], req.Params["id"]
	if typeID == "" || id == "" {
		return nil, apierror.ErrBadRequest("missing target type/id")
	}
	dev, ok := m.TargetByID(typeID, id)
	if !ok {
		return nil, apierror.ErrNotFound("no such target device: " + typeID + id)
	}
	return dev, nil
}

// TargetName answers {type}/{id}/Name.
func TargetName(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		dev, err := targetFromRequest(m, req)
		if err != nil {
			return err
		}
		body, _ := json.Marshal(apitypes.NameResponse{Name: dev.Type()})
		res.JSON = string(body)
		return nil
	}
}

type sendKeyRequest struct {
	Code    string `json:"code"`
	Pressed bool   `json:"pressed"`
}

// SendKey answers keyboard/{id}/SendKey, the keyboard target's type-specific
// command from spec.md §6.
func SendKey(m *manager.Manager) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		dev, err := targetFromRequest(m, req)
		if err != nil {
			return err
		}
		kb, ok := dev.(*kernelbus.Keyboard)
		if !ok {
			return apierror.ErrBadRequest("target is not a keyboard")
		}
		var body sendKeyRequest
		if err := json.Unmarshal([]byte(req.Payload), &body); err != nil {
			return apierror.ErrBadRequest("malformed send key request: " + err.Error())
		}
		kb.WriteEvent(native.NewEvent(native.NewKeyboardKey(native.KeyboardKey(body.Code)), native.Bool(body.Pressed)))
		return nil
	}
}
