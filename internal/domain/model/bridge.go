package model

import (
	"net"
	"strconv"
)

// Identity of the emulated bridge.
const (
	DefaultBridgeName = "HASS BRIDGE"
	DefaultSerial     = "001788FFFE23BFC2"
	DefaultUUID       = "2f402f80-da50-11e1-9b23-001788255acc"
	// HueUsername is handed out to every client that pairs.
	HueUsername = "nouser"
)

// BridgeInfo is what the bridge advertises about itself.
type BridgeInfo struct {
	Name          string
	Serial        string
	UUID          string
	AdvertiseIP   string
	AdvertisePort int
}

// Address is the advertised host:port.
func (b BridgeInfo) Address() string {
	return net.JoinHostPort(b.AdvertiseIP, strconv.Itoa(b.AdvertisePort))
}

// BaseURL is the advertised http root, with a trailing slash.
func (b BridgeInfo) BaseURL() string {
	return "http://" + b.Address() + "/"
}

// HueConfig is the Hue "config" resource.
type HueConfig struct {
	Name       string                    `json:"name"`
	Mac        string                    `json:"mac"`
	SwVersion  string                    `json:"swversion"`
	APIVersion string                    `json:"apiversion"`
	Whitelist  map[string]WhitelistEntry `json:"whitelist"`
	IPAddress  string                    `json:"ipaddress"`
	LinkButton bool                      `json:"linkbutton"`
}

type WhitelistEntry struct {
	Name string `json:"name"`
}
