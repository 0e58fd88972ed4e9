package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"

	log "github.com/echocat/slf4g"
	"github.com/go-chi/chi/v5"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

const maxBodySize = 64 << 10

func (s *Server) handleDescription(w http.ResponseWriter, _ *http.Request) {
	info := s.config.Info()
	w.Header().Set("Content-Type", "text/xml")
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion>
<major>1</major>
<minor>0</minor>
</specVersion>
<URLBase>%s</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>%s (%s)</friendlyName>
<manufacturer>Royal Philips Electronics</manufacturer>
<manufacturerURL>http://www.philips.com</manufacturerURL>
<modelDescription>Philips hue Personal Wireless Lighting</modelDescription>
<modelName>Philips hue bridge 2015</modelName>
<modelNumber>BSB002</modelNumber>
<modelURL>http://www.meethue.com</modelURL>
<serialNumber>%s</serialNumber>
<UDN>uuid:%s</UDN>
</device>
</root>
`, info.BaseURL(), html.EscapeString(info.Name), info.AdvertiseIP, info.Serial, info.UUID)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON"})
		return
	}
	if _, ok := body["devicetype"]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "devicetype not specified"})
		return
	}
	log.With("devicetype", body["devicetype"]).
		With("remote", r.RemoteAddr).
		Info("Client paired.")
	writeJSON(w, http.StatusOK, []map[string]map[string]string{
		{"success": {"username": model.HueUsername}},
	})
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, hueErrors(model.HueErrUnauthorized, "/", "unauthorized user"))
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.config.HueConfig())
}

func (s *Server) handleFullState(w http.ResponseWriter, r *http.Request) {
	views, err := s.bridge.Lights(r.Context())
	if err != nil {
		s.hueInternalError(w, "/", err)
		return
	}
	writeJSON(w, http.StatusOK, object{
		{"lights", renderLights(views)},
		{"config", s.config.HueConfig()},
	})
}

func (s *Server) handleLights(w http.ResponseWriter, r *http.Request) {
	views, err := s.bridge.Lights(r.Context())
	if err != nil {
		s.hueInternalError(w, "/lights", err)
		return
	}
	writeJSON(w, http.StatusOK, renderLights(views))
}

func (s *Server) handleLight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := s.bridge.Light(r.Context(), id, remoteHost(r.RemoteAddr))
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, notAvailable(id))
		return
	}
	if err != nil {
		s.hueInternalError(w, "/lights/"+id, err)
		return
	}
	writeJSON(w, http.StatusOK, renderLight(view))
}

func (s *Server) handleSetLightState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	address := "/lights/" + id + "/state"

	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil || body == nil {
		writeJSON(w, http.StatusBadRequest, hueErrors(model.HueErrInvalidJSON, address, "body contains invalid json"))
		return
	}
	cmd, err := parseCommand(body)
	if err != nil {
		var fe *fieldError
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusBadRequest, hueErrors(model.HueErrInvalidValue, address+"/"+fe.field, fe.Error()))
			return
		}
		writeJSON(w, http.StatusBadRequest, hueErrors(model.HueErrInvalidJSON, address, err.Error()))
		return
	}

	results, err := s.bridge.SetLightState(r.Context(), id, remoteHost(r.RemoteAddr), cmd)
	if errors.Is(err, model.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, notAvailable(id))
		return
	}
	if err != nil {
		s.hueInternalError(w, address, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResults(id, results))
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{})
}

// handleGroupAction answers Logitech Pop switches, which insist on a
// group scene call before they use the lights.
func (s *Server) handleGroupAction(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, hueErrors(model.HueErrInvalidValue, "/groups/0/action/scene", "invalid value, dummy for parameter, scene"))
}

func (s *Server) hueInternalError(w http.ResponseWriter, address string, err error) {
	log.WithError(err).
		With("address", address).
		Warn("Cannot serve hue request.")
	writeJSON(w, http.StatusInternalServerError, hueErrors(model.HueErrInternal, address, err.Error()))
}
