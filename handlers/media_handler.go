package handlers

import (
	"net/http"

	"github.com/openkmj/timjs/services"
)

type MediaHandler struct {
	mediaService services.MediaService
	feedService  services.FeedService
}

func NewMediaHandler(ms services.MediaService, fs services.FeedService) *MediaHandler {
	return &MediaHandler{
		mediaService: ms,
		feedService:  fs,
	}
}

func (h *MediaHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.RequestUploadInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	targets, err := h.mediaService.RequestUpload(r.Context(), user, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, targets, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ConfirmUploads records a batch of already uploaded objects.
func (h *MediaHandler) ConfirmUploads(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.ConfirmUploadsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.mediaService.ConfirmUploads(r.Context(), user, input); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	noContent(w)
}

func (h *MediaHandler) Feed(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var query services.FeedQuery
	if fields := decodeQuery(r, &query); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	page, err := h.feedService.Page(r.Context(), user.TeamID, query)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, page, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MediaHandler) GetMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	mediaID, err := getIDFromURL(r, "mediaID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	media, err := h.mediaService.GetMedia(r.Context(), user.TeamID, mediaID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, media, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MediaHandler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	mediaID, err := getIDFromURL(r, "mediaID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.mediaService.DeleteMedia(r.Context(), user, mediaID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	noContent(w)
}
