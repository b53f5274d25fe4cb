package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gridspace/gridspace/pkg/api/middleware"
	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/spaces"
)

// SpaceResponse is the JSON shape returned for a space.
type SpaceResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatorID string `json:"creatorId"`
	MapID     string `json:"mapId,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// CreateSpaceRequest is the JSON payload accepted by space creation.
type CreateSpaceRequest struct {
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	MapID     string `json:"mapId,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

func spaceResponseFrom(space *spaces.Space) SpaceResponse {
	return SpaceResponse{
		ID:        space.ID,
		Name:      space.Name,
		Width:     space.Width,
		Height:    space.Height,
		CreatorID: space.CreatorID,
		MapID:     space.MapID,
		Thumbnail: space.Thumbnail,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

// HandleListSpaces returns all spaces.
func HandleListSpaces(repository spaces.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := repository.ListSpaces(r.Context())
		if err != nil {
			log.Error("failed to list spaces: %v", err)
			http.Error(w, "failed to list spaces", http.StatusInternalServerError)
			return
		}
		result := make([]SpaceResponse, 0, len(all))
		for _, space := range all {
			result = append(result, spaceResponseFrom(space))
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// HandleGetSpace returns one space by id.
func HandleGetSpace(repository spaces.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spaceID := mux.Vars(r)["spaceID"]
		space, err := repository.GetSpace(r.Context(), spaceID)
		if err != nil {
			if spaces.IsNotFound(err) {
				http.Error(w, "space not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get space %s: %v", spaceID, err)
			http.Error(w, "failed to get space", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, spaceResponseFrom(space))
	}
}

// HandleCreateSpace creates a space owned by the caller.
func HandleCreateSpace(repository spaces.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "missing claims", http.StatusUnauthorized)
			return
		}

		req := &CreateSpaceRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Width <= 0 || req.Height <= 0 {
			http.Error(w, "name, width and height are required", http.StatusBadRequest)
			return
		}

		space := &spaces.Space{
			ID:        uuid.NewString(),
			Name:      req.Name,
			Width:     req.Width,
			Height:    req.Height,
			CreatorID: claims.UID,
			MapID:     req.MapID,
			Thumbnail: req.Thumbnail,
		}
		if err := repository.CreateSpace(r.Context(), space); err != nil {
			log.Error("failed to create space: %v", err)
			http.Error(w, "failed to create space", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, spaceResponseFrom(space))
	}
}

// HandleDeleteSpace deletes a space. Only the creator may delete it.
func HandleDeleteSpace(repository spaces.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "missing claims", http.StatusUnauthorized)
			return
		}

		spaceID := mux.Vars(r)["spaceID"]
		space, err := repository.GetSpace(r.Context(), spaceID)
		if err != nil {
			if spaces.IsNotFound(err) {
				http.Error(w, "space not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get space %s: %v", spaceID, err)
			http.Error(w, "failed to get space", http.StatusInternalServerError)
			return
		}
		if space.CreatorID != claims.UID {
			http.Error(w, "only the creator can delete a space", http.StatusForbidden)
			return
		}

		if err := repository.DeleteSpace(r.Context(), spaceID); err != nil {
			log.Error("failed to delete space %s: %v", spaceID, err)
			http.Error(w, "failed to delete space", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
