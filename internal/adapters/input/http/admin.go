package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	log "github.com/echocat/slf4g"
	"github.com/go-chi/chi/v5"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// DeviceRequest is the body of POST /admin/devices.
type DeviceRequest struct {
	Name     string `json:"name"`
	EntityID string `json:"entity_id,omitempty"`
}

// DeviceResponse is a device as the admin API shows it.
type DeviceResponse struct {
	*model.DeviceRecord
	EntityID string `json:"entity_id,omitempty"`
	UniqueID string `json:"uniqueid"`
}

type adminError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func toResponse(d *model.DeviceRecord) DeviceResponse {
	return DeviceResponse{DeviceRecord: d, EntityID: d.EntityID(), UniqueID: uniqueID(d.HueID)}
}

func writeAdminError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).
			Warn("Admin request failed.")
	}
	writeJSON(w, status, adminError{Status: status, Message: err.Error()})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.admin.ListDevices(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	out := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, toResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeAdminError(w, &model.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	var target *model.TargetRef
	if req.EntityID != "" {
		ref, err := model.ParseTargetRef(req.EntityID)
		if err != nil {
			writeAdminError(w, err)
			return
		}
		target = ref
	}
	d, err := s.admin.CreateDevice(r.Context(), req.Name, target)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(d))
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.admin.GetDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(d))
}

// handleUpdateDevice applies a partial update. "entity_id": null or ""
// unlinks the device; "scale": null restores the default scale.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil {
		writeAdminError(w, &model.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	upd, err := parseUpdate(body)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	d, err := s.admin.UpdateDevice(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(d))
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.DeleteDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.admin.Reload(r.Context()); err != nil {
		writeAdminError(w, err)
		return
	}
	stats, err := s.admin.Stats(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.admin.Stats(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := s.admin.Entities(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

var null = []byte("null")

func parseUpdate(body map[string]json.RawMessage) (model.DeviceUpdate, error) {
	var upd model.DeviceUpdate
	if raw, ok := body["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return upd, &model.ValidationError{Field: "name", Reason: "must be a string"}
		}
		upd.Name = &name
	}
	if raw, ok := body["entity_id"]; ok {
		var target *model.TargetRef
		if !bytes.Equal(raw, null) {
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return upd, &model.ValidationError{Field: "entity_id", Reason: "must be a string or null"}
			}
			if id != "" {
				ref, err := model.ParseTargetRef(id)
				if err != nil {
					return upd, err
				}
				target = ref
			}
		}
		upd.Target = &target
	}
	if raw, ok := body["scale"]; ok {
		var scale *model.ScaleOverride
		if !bytes.Equal(raw, null) {
			scale = &model.ScaleOverride{}
			if err := json.Unmarshal(raw, scale); err != nil {
				return upd, &model.ValidationError{Field: "scale", Reason: "must be an object with to_hue and to_native"}
			}
		}
		upd.Scale = &scale
	}
	return upd, nil
}
