// Package config defines the inputplumberd CLI: the daemon command that
// starts the USB/IP export server and the control surface, and a config
// subcommand that scaffolds a configuration template. Grounded on the
// teacher's internal/cmd package, generalized from its dual server/proxy
// mode to inputplumberd's single daemon mode.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/control"
	"github.com/ShadowBlip/InputPlumber-sub001/control/auth"
	"github.com/ShadowBlip/InputPlumber-sub001/control/handler"
	"github.com/ShadowBlip/InputPlumber-sub001/internal/configpaths"
	log "github.com/ShadowBlip/InputPlumber-sub001/internal/ilog"
	"github.com/ShadowBlip/InputPlumber-sub001/manager"
	usbserver "github.com/ShadowBlip/InputPlumber-sub001/usbbus/server"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

const keyFileName = "inputplumber.key.txt"

// CLI is the root command set kong parses into.
type CLI struct {
	Log LogOptions `embed:"" prefix:"log."`

	Daemon Daemon    `cmd:"" default:"1" help:"Run the inputplumberd daemon"`
	Config ConfigCmd `cmd:"" help:"Generate a configuration template"`
}

// LogOptions controls the daemon's structured and raw-frame logging.
type LogOptions struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"INPUTPLUMBER_LOG_LEVEL"`
	File    string `help:"Also write structured logs to this file; console output then goes to stderr only"`
	RawFile string `help:"Write a hex dump of the USB/IP traffic exchanged with clients to this file"`
}

// Daemon is inputplumberd's only run mode: export the virtual USB bus over
// USB/IP and serve the control surface from spec.md §6.
type Daemon struct {
	UsbServerConfig   usbserver.ServerConfig `embed:"" prefix:"usb."`
	ApiServerConfig   control.ServerConfig   `embed:"" prefix:"api."`
	ConnectionTimeout time.Duration          `help:"default read/write timeout for kernel and control-surface I/O" default:"30s" env:"INPUTPLUMBER_CONNECTION_TIMEOUT"`
}

// Run is invoked by kong for the daemon command (the default when no
// subcommand is given).
func (d *Daemon) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return StartDaemon(ctx, d, logger, rawLogger)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// ConfigCmd groups config-related subcommands.
type ConfigCmd struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a daemon configuration file.
type ConfigInit struct {
	Format string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output string `help:"Destination file path (defaults to ./inputplumberd.<ext>)"`
	Force  bool   `help:"Overwrite if the file already exists"`
}

// Run generates a configuration template by reflecting over Daemon's kong tags.
func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	root := buildMapFromStruct(reflect.TypeOf(Daemon{}))

	dest := c.Output
	if dest == "" {
		dest = "inputplumberd." + format
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	var data []byte
	var err error
	switch format {
	case "json":
		data, err = json.MarshalIndent(root, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(root)
	case "toml":
		data, err = toml.Marshal(root)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] = r[0] + ('a' - 'A')
	}
	return string(r)
}

func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Tag.Get("kong") == "-" {
			continue
		}
		if _, ok := f.Tag.Lookup("embed"); ok {
			prefix := strings.TrimSuffix(f.Tag.Get("prefix"), ".")
			sub := buildMapFromStruct(f.Type)
			if prefix != "" {
				out[prefix] = sub
			} else {
				for k, v := range sub {
					out[k] = v
				}
			}
			continue
		}
		key := lowerCamel(f.Name)
		if val := defaultValueForField(f.Type, f.Tag.Get("default")); val != nil {
			out[key] = val
		}
	}
	return out
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def != "" {
			return def
		}
		return "0s"
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, 64)
		return n
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(def, 64)
		return f
	case reflect.Struct:
		return buildMapFromStruct(t)
	default:
		return nil
	}
}

// StartDaemon wires the virtual USB bus, the USB/IP export server, the
// process-wide input manager, and the control surface together, and blocks
// until ctx is canceled.
func StartDaemon(ctx context.Context, d *Daemon, logger *slog.Logger, rawLogger log.RawLogger) error {
	d.UsbServerConfig.ConnectionTimeout = d.ConnectionTimeout
	d.ApiServerConfig.ConnectionTimeout = d.ConnectionTimeout
	d.UsbServerConfig.BusCleanupTimeout = d.ApiServerConfig.DeviceHandlerConnectTimeout

	mgr := manager.New(logger)

	usbSrv := usbserver.New(d.UsbServerConfig, logger, rawLogger)
	if err := usbSrv.AddBus(mgr.Bus()); err != nil {
		return fmt.Errorf("register virtual bus: %w", err)
	}

	usbErrCh := make(chan error, 1)
	go func() {
		usbErrCh <- usbSrv.ListenAndServe()
	}()

	select {
	case err := <-usbErrCh:
		return err
	case <-usbSrv.Ready():
	}

	keyFileDir, err := configpaths.DefaultConfigDir()
	if err != nil {
		return fmt.Errorf("resolve key file path: %w", err)
	}
	keyFilePath := path.Join(keyFileDir, keyFileName)
	if pwd, err := os.ReadFile(keyFilePath); err == nil {
		d.ApiServerConfig.Password = strings.TrimSpace(string(pwd))
	} else {
		newPwd, err := auth.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate API password: %w", err)
		}
		if err := os.MkdirAll(keyFileDir, 0o700); err != nil {
			return fmt.Errorf("create config dir for key file: %w", err)
		}
		if err := os.WriteFile(keyFilePath, []byte(newPwd), 0o600); err != nil {
			return fmt.Errorf("write API password: %w", err)
		}
		d.ApiServerConfig.Password = newPwd
		logger.Info("generated control server password", "path", keyFilePath)
	}

	if d.ApiServerConfig.Addr == "" {
		return fmt.Errorf("control server address must be set (default :3242)")
	}

	apiSrv := control.New(d.ApiServerConfig.Addr, d.ApiServerConfig, logger)
	registerRoutes(apiSrv.Router(), mgr)

	if d.ApiServerConfig.AutoAttachLocalClient {
		logger.Info("auto-attach is enabled, checking prerequisites...")
		if !control.CheckAutoAttachPrerequisites(false, logger) {
			logger.Warn("auto-attach prerequisites not met")
		}
	}

	if err := apiSrv.Start(); err != nil {
		return fmt.Errorf("start control server: %w", err)
	}

	select {
	case <-ctx.Done():
		apiSrv.Close()
		_ = usbSrv.Close()
		<-usbErrCh
		return nil
	case err := <-usbErrCh:
		apiSrv.Close()
		return err
	}
}

func registerRoutes(r *control.Router, mgr *manager.Manager) {
	r.Register("compositedevice/{id}/name", handler.Name(mgr))
	r.Register("compositedevice/{id}/profilename", handler.ProfileName(mgr))
	r.Register("compositedevice/{id}/capabilities", handler.Capabilities(mgr))
	r.Register("compositedevice/{id}/targetcapabilities/{path}", handler.TargetCapabilities(mgr))
	r.Register("compositedevice/{id}/sourcedevicepaths", handler.SourceDevicePaths(mgr))
	r.Register("compositedevice/{id}/targetdevices", handler.TargetDevicePaths(mgr))
	r.Register("compositedevice/{id}/dbusdevices", handler.DBusDevices(mgr))
	r.Register("compositedevice/{id}/interceptmode/get", handler.GetInterceptMode(mgr))
	r.Register("compositedevice/{id}/interceptmode/set", handler.SetInterceptMode(mgr))
	r.Register("compositedevice/{id}/stop", handler.Stop(mgr))
	r.Register("compositedevice/{id}/loadprofilepath", handler.LoadProfilePath(mgr))
	r.Register("compositedevice/{id}/settargetdevices", handler.SetTargetDevices(mgr))
	r.Register("compositedevice/{id}/sendevent", handler.SendEvent(mgr))
	r.Register("compositedevice/{id}/sendbuttonchord", handler.SendButtonChord(mgr))
	r.Register("compositedevice/{id}/setinterceptactivation", handler.SetInterceptActivation(mgr))

	r.Register("{type}/{id}/name", handler.TargetName(mgr))
	r.Register("keyboard/{id}/sendkey", handler.SendKey(mgr))
}
