package api

import "time"

// ServerConfig represents the server subcommand configuration.
type ServerConfig struct {
	Addr                        string        `help:"Control server listen address" default:":3242" env:"INPUTPLUMBER_API_ADDR"`
	DeviceHandlerConnectTimeout time.Duration `help:"Time before auto-cleanup occurs when a target has no active connection" default:"5s" env:"INPUTPLUMBER_API_DEVICE_HANDLER_TIMEOUT"`
	AutoAttachLocalClient       bool          `help:"Check at startup that usbip-client auto-attach on localhost is possible (targets are not attached automatically)" default:"true" env:"INPUTPLUMBER_API_AUTO_ATTACH_LOCAL_CLIENT"`
	RequireLocalHostAuth        bool          `help:"Require authentication for clients connecting from localhost" default:"false" env:"INPUTPLUMBER_API_REQUIRE_LOCALHOST_AUTH"`
	ConnectionTimeout           time.Duration `kong:"-"`
	platformOpts                `embed:""`
	// password for api (remote) server auth (ALWAYS read from file)
	Password string `kong:"-"`
}
