// Package config holds the daemon configuration. It is read from a YAML
// file and overridden by flags or HUE_* environment variables.
package config

import (
	"time"

	"github.com/alecthomas/kingpin/v2"
)

const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"

	TargetHomeAssistant = "homeassistant"
	TargetMQTT          = "mqtt"
)

type FlagHolder interface {
	Flag(name, help string) *kingpin.FlagClause
}

type Configuration struct {
	ListenIP      string `yaml:"listenIp,omitempty"`
	ListenPort    int    `yaml:"listenPort,omitempty"`
	AdvertiseIP   string `yaml:"advertiseIp,omitempty"`
	AdvertisePort int    `yaml:"advertisePort,omitempty"`
	Interface     string `yaml:"interface,omitempty"`
	LockFile      string `yaml:"lockFile,omitempty"`

	Bridge  Bridge  `yaml:"bridge,omitempty"`
	Storage Storage `yaml:"storage,omitempty"`
	Target  Target  `yaml:"target,omitempty"`
	API     API     `yaml:"api,omitempty"`
	Metrics Metrics `yaml:"metrics,omitempty"`
}

type Bridge struct {
	Name   string `yaml:"name,omitempty"`
	Serial string `yaml:"serial,omitempty"`
	UUID   string `yaml:"uuid,omitempty"`
}

type Storage struct {
	Driver string `yaml:"driver,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

type Target struct {
	Provider      string        `yaml:"provider,omitempty"`
	HomeAssistant HomeAssistant `yaml:"homeassistant,omitempty"`
	MQTT          MQTT          `yaml:"mqtt,omitempty"`
}

type HomeAssistant struct {
	URL     string        `yaml:"url,omitempty"`
	Token   string        `yaml:"token,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type MQTT struct {
	Broker   string `yaml:"broker,omitempty"`
	ClientID string `yaml:"clientId,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	QoS      uint8  `yaml:"qos,omitempty"`
}

type API struct {
	StrictCommands  bool          `yaml:"strictCommands,omitempty"`
	AllowNonLocal   bool          `yaml:"allowNonLocal,omitempty"`
	DetectConflicts *bool         `yaml:"detectConflicts,omitempty"`
	ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"writeTimeout,omitempty"`
	IdleTimeout     time.Duration `yaml:"idleTimeout,omitempty"`
	CommandCacheTTL time.Duration `yaml:"commandCacheTtl,omitempty"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	URL     string `yaml:"url,omitempty"`
	Token   string `yaml:"token,omitempty"`
	Org     string `yaml:"org,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
}

func Defaults() Configuration {
	detect := true
	return Configuration{
		ListenIP:   "0.0.0.0",
		ListenPort: 80,
		Storage: Storage{
			Driver: StorageJSON,
		},
		Target: Target{
			Provider: TargetHomeAssistant,
			HomeAssistant: HomeAssistant{
				URL:     "http://localhost:8123",
				Timeout: 10 * time.Second,
			},
			MQTT: MQTT{
				ClientID: "ha-emulated-hue",
				Prefix:   "hue",
			},
		},
		API: API{
			DetectConflicts: &detect,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			CommandCacheTTL: 2 * time.Second,
		},
	}
}

// SetupConfiguration binds every setting to a flag.
func (this *Configuration) SetupConfiguration(using FlagHolder) {
	using.Flag("listenIp", "Address the api server binds to.").
		Envar("HUE_LISTEN_IP").
		StringVar(&this.ListenIP)
	using.Flag("listenPort", "Port of the api server. Most Hue clients only talk to port 80.").
		Envar("HUE_LISTEN_PORT").
		IntVar(&this.ListenPort)
	using.Flag("advertiseIp", "Address announced to clients. Detected if empty.").
		Envar("HUE_ADVERTISE_IP").
		StringVar(&this.AdvertiseIP)
	using.Flag("advertisePort", "Port announced to clients. Defaults to the listen port.").
		Envar("HUE_ADVERTISE_PORT").
		IntVar(&this.AdvertisePort)
	using.Flag("interface", "Network interface for discovery. All interfaces if empty.").
		Envar("HUE_INTERFACE").
		StringVar(&this.Interface)
	using.Flag("lockFile", "File that keeps a second instance from starting.").
		Envar("HUE_LOCK_FILE").
		StringVar(&this.LockFile)

	using.Flag("bridge.name", "Name of the emulated bridge.").
		Envar("HUE_BRIDGE_NAME").
		StringVar(&this.Bridge.Name)
	using.Flag("bridge.serial", "Serial number (bridge id) of the emulated bridge.").
		Envar("HUE_BRIDGE_SERIAL").
		StringVar(&this.Bridge.Serial)
	using.Flag("bridge.uuid", "UPnP uuid of the emulated bridge. Derived from the serial if empty.").
		Envar("HUE_BRIDGE_UUID").
		StringVar(&this.Bridge.UUID)

	using.Flag("storage.driver", "Device storage: json or sqlite.").
		Envar("HUE_STORAGE_DRIVER").
		EnumVar(&this.Storage.Driver, StorageJSON, StorageSQLite)
	using.Flag("storage.path", "File the devices are stored in.").
		Envar("HUE_STORAGE_PATH").
		StringVar(&this.Storage.Path)

	using.Flag("target.provider", "Where lights are controlled: homeassistant or mqtt.").
		Envar("HUE_TARGET_PROVIDER").
		EnumVar(&this.Target.Provider, TargetHomeAssistant, TargetMQTT)
	using.Flag("target.homeassistant.url", "URL of the Home Assistant instance.").
		Envar("HUE_TARGET_HOMEASSISTANT_URL").
		StringVar(&this.Target.HomeAssistant.URL)
	using.Flag("target.homeassistant.token", "Long lived access token for Home Assistant.").
		Envar("HUE_TARGET_HOMEASSISTANT_TOKEN").
		StringVar(&this.Target.HomeAssistant.Token)
	using.Flag("target.homeassistant.timeout", "Timeout of Home Assistant requests.").
		Envar("HUE_TARGET_HOMEASSISTANT_TIMEOUT").
		DurationVar(&this.Target.HomeAssistant.Timeout)
	using.Flag("target.mqtt.broker", "MQTT broker url, e.g. tcp://localhost:1883.").
		Envar("HUE_TARGET_MQTT_BROKER").
		StringVar(&this.Target.MQTT.Broker)
	using.Flag("target.mqtt.clientId", "MQTT client id.").
		Envar("HUE_TARGET_MQTT_CLIENT_ID").
		StringVar(&this.Target.MQTT.ClientID)
	using.Flag("target.mqtt.username", "MQTT username.").
		Envar("HUE_TARGET_MQTT_USERNAME").
		StringVar(&this.Target.MQTT.Username)
	using.Flag("target.mqtt.password", "MQTT password.").
		Envar("HUE_TARGET_MQTT_PASSWORD").
		StringVar(&this.Target.MQTT.Password)
	using.Flag("target.mqtt.prefix", "Topic prefix of the entities.").
		Envar("HUE_TARGET_MQTT_PREFIX").
		StringVar(&this.Target.MQTT.Prefix)
	using.Flag("target.mqtt.qos", "QoS of subscriptions and commands.").
		Envar("HUE_TARGET_MQTT_QOS").
		Uint8Var(&this.Target.MQTT.QoS)

	using.Flag("api.strictCommands", "Reject command fields a device cannot honour instead of ignoring them.").
		Envar("HUE_API_STRICT_COMMANDS").
		BoolVar(&this.API.StrictCommands)
	using.Flag("api.allowNonLocal", "Also serve clients outside of local networks.").
		Envar("HUE_API_ALLOW_NON_LOCAL").
		BoolVar(&this.API.AllowNonLocal)
	using.Flag("api.readTimeout", "Read timeout of api requests.").
		Envar("HUE_API_READ_TIMEOUT").
		DurationVar(&this.API.ReadTimeout)
	using.Flag("api.writeTimeout", "Write timeout of api requests.").
		Envar("HUE_API_WRITE_TIMEOUT").
		DurationVar(&this.API.WriteTimeout)
	using.Flag("api.idleTimeout", "Idle timeout of api connections.").
		Envar("HUE_API_IDLE_TIMEOUT").
		DurationVar(&this.API.IdleTimeout)
	using.Flag("api.commandCacheTtl", "How long a commanded state is reported before the target is asked again.").
		Envar("HUE_API_COMMAND_CACHE_TTL").
		DurationVar(&this.API.CommandCacheTTL)

	using.Flag("metrics.enabled", "Record every light command in InfluxDB.").
		Envar("HUE_METRICS_ENABLED").
		BoolVar(&this.Metrics.Enabled)
	using.Flag("metrics.url", "InfluxDB url.").
		Envar("HUE_METRICS_URL").
		StringVar(&this.Metrics.URL)
	using.Flag("metrics.token", "InfluxDB token.").
		Envar("HUE_METRICS_TOKEN").
		StringVar(&this.Metrics.Token)
	using.Flag("metrics.org", "InfluxDB organization.").
		Envar("HUE_METRICS_ORG").
		StringVar(&this.Metrics.Org)
	using.Flag("metrics.bucket", "InfluxDB bucket.").
		Envar("HUE_METRICS_BUCKET").
		StringVar(&this.Metrics.Bucket)
}
