package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

var serialPattern = regexp.MustCompile(`^[0-9A-Fa-f]{12}([0-9A-Fa-f]{4})?$`)

func (this *Configuration) loadFrom(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(this); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (this *Configuration) loadFromFile(fn string, ignoreNotFound bool) error {
	f, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := this.loadFrom(f); err != nil {
		return fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}
	return nil
}

// Load reads fn (if given), lets every set value of fromFlags win,
// fills the remaining gaps with defaults and derived values and
// validates the result.
func Load(fn string, fromFlags Configuration) (*Configuration, error) {
	var result Configuration
	if fn != "" {
		if err := result.loadFromFile(fn, false); err != nil {
			return nil, err
		}
	}
	if err := mergo.Merge(&result, fromFlags, mergo.WithOverride); err != nil {
		return nil, err
	}
	if err := mergo.Merge(&result, Defaults()); err != nil {
		return nil, err
	}
	if err := result.complete(); err != nil {
		return nil, err
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (this *Configuration) complete() error {
	if this.AdvertisePort == 0 {
		this.AdvertisePort = this.ListenPort
	}
	if this.AdvertiseIP == "" {
		if ip := net.ParseIP(this.ListenIP); ip != nil && !ip.IsUnspecified() {
			this.AdvertiseIP = this.ListenIP
		} else {
			detected, err := detectIP(this.Interface)
			if err != nil {
				return err
			}
			this.AdvertiseIP = detected
		}
	}
	if this.Bridge.Name == "" {
		this.Bridge.Name = model.DefaultBridgeName
	}
	if this.Bridge.Serial == "" {
		this.Bridge.Serial = model.DefaultSerial
	}
	this.Bridge.Serial = strings.ToUpper(this.Bridge.Serial)
	if this.Bridge.UUID == "" {
		this.Bridge.UUID = deriveUUID(this.Bridge.Serial)
	}
	if this.Storage.Path == "" {
		this.Storage.Path = filepath.Join("data", "devices."+this.Storage.Driver)
		if this.Storage.Driver == StorageSQLite {
			this.Storage.Path = filepath.Join("data", "devices.db")
		}
	}
	if this.LockFile == "" {
		this.LockFile = filepath.Join(filepath.Dir(this.Storage.Path), "bridge.lock")
	}
	return nil
}

// deriveUUID keeps the well known uuid for the default serial and
// derives a stable one for every other serial.
func deriveUUID(serial string) string {
	if serial == model.DefaultSerial {
		return model.DefaultUUID
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("hue-bridge:"+serial)).String()
}

func (this *Configuration) Validate() error {
	var errs []error
	checkPort := func(name string, port int) {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", name, port))
		}
	}
	checkPort("listenPort", this.ListenPort)
	checkPort("advertisePort", this.AdvertisePort)

	if ip := net.ParseIP(this.AdvertiseIP); ip == nil || ip.IsUnspecified() {
		errs = append(errs, fmt.Errorf("advertiseIp %q is not a usable ip address", this.AdvertiseIP))
	}
	if net.ParseIP(this.ListenIP) == nil {
		errs = append(errs, fmt.Errorf("listenIp %q is not an ip address", this.ListenIP))
	}
	if !serialPattern.MatchString(this.Bridge.Serial) {
		errs = append(errs, fmt.Errorf("bridge.serial %q must be 12 or 16 hex digits", this.Bridge.Serial))
	}
	if _, err := uuid.Parse(this.Bridge.UUID); err != nil {
		errs = append(errs, fmt.Errorf("bridge.uuid %q: %w", this.Bridge.UUID, err))
	}

	switch this.Storage.Driver {
	case StorageJSON, StorageSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be %s or %s, got %q", StorageJSON, StorageSQLite, this.Storage.Driver))
	}

	switch this.Target.Provider {
	case TargetHomeAssistant:
		if this.Target.HomeAssistant.Token == "" {
			errs = append(errs, errors.New("target.homeassistant.token is required"))
		}
	case TargetMQTT:
		if this.Target.MQTT.Broker == "" {
			errs = append(errs, errors.New("target.mqtt.broker is required"))
		}
		if this.Target.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("target.mqtt.qos must be 0, 1 or 2, got %d", this.Target.MQTT.QoS))
		}
	default:
		errs = append(errs, fmt.Errorf("target.provider must be %s or %s, got %q", TargetHomeAssistant, TargetMQTT, this.Target.Provider))
	}

	if this.Metrics.Enabled && (this.Metrics.URL == "" || this.Metrics.Bucket == "") {
		errs = append(errs, errors.New("metrics.url and metrics.bucket are required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

func (this *Configuration) BridgeInfo() model.BridgeInfo {
	return model.BridgeInfo{
		Name:          this.Bridge.Name,
		Serial:        this.Bridge.Serial,
		UUID:          this.Bridge.UUID,
		AdvertiseIP:   this.AdvertiseIP,
		AdvertisePort: this.AdvertisePort,
	}
}

// detectIP returns the first non loopback IPv4 address, of iface if set.
func detectIP(iface string) (string, error) {
	var addrs []net.Addr
	var err error
	if iface != "" {
		var i *net.Interface
		if i, err = net.InterfaceByName(iface); err == nil {
			addrs, err = i.Addrs()
		}
	} else {
		addrs, err = net.InterfaceAddrs()
	}
	if err != nil {
		return "", fmt.Errorf("cannot detect advertise ip: %w", err)
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	return "", errors.New("cannot detect advertise ip, set advertiseIp")
}
