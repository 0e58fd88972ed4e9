package ssdp

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// Search targets the bridge answers to.
var searchTargets = map[string]bool{
	"ssdp:all":                            true,
	"upnp:rootdevice":                     true,
	"urn:schemas-upnp-org:device:basic:1": true,
}

// Response builds the unicast answer to an M-SEARCH probe. It reports
// false for anything the bridge must not answer.
func Response(probe []byte, info model.BridgeInfo) ([]byte, bool) {
	r := bufio.NewReader(bytes.NewReader(probe))
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return nil, false
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "M-SEARCH ") {
		return nil, false
	}

	headers := http.Header{}
	for {
		line, err := r.ReadString('\n')
		name, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok {
			headers.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
		if err != nil || strings.TrimSpace(line) == "" {
			break
		}
	}

	if strings.Trim(headers.Get("MAN"), `"`) != "ssdp:discover" {
		return nil, false
	}
	st := headers.Get("ST")
	if !searchTargets[strings.ToLower(st)] {
		return nil, false
	}

	return []byte(fmt.Sprintf("HTTP/1.1 200 OK\r\n"+
		"CACHE-CONTROL: max-age=60\r\n"+
		"EXT:\r\n"+
		"LOCATION: %sdescription.xml\r\n"+
		"SERVER: FreeRTOS/6.0.5, UPnP/1.0, IpBridge/1.16.0\r\n"+
		"hue-bridgeid: %s\r\n"+
		"ST: %s\r\n"+
		"USN: uuid:%s::%s\r\n"+
		"\r\n", info.BaseURL(), info.Serial, st, info.UUID, st)), true
}
