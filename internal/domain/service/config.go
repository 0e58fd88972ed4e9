package service

import (
	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

type ConfigService struct {
	info model.BridgeInfo
}

func NewConfigService(info model.BridgeInfo) *ConfigService {
	if info.Name == "" {
		info.Name = model.DefaultBridgeName
	}
	if info.Serial == "" {
		info.Serial = model.DefaultSerial
	}
	if info.UUID == "" {
		info.UUID = model.DefaultUUID
	}
	return &ConfigService{info: info}
}

func (s *ConfigService) Info() model.BridgeInfo {
	return s.info
}

// HueConfig renders the bridge config resource.
func (s *ConfigService) HueConfig() *model.HueConfig {
	return &model.HueConfig{
		Name:       s.info.Name,
		Mac:        "00:00:00:00:00:00",
		SwVersion:  "01003542",
		APIVersion: "1.17.0",
		Whitelist: map[string]model.WhitelistEntry{
			model.HueUsername: {Name: s.info.Name},
		},
		IPAddress:  s.info.Address(),
		LinkButton: true,
	}
}
