package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"windryft.app/pocket-windryft/internal/filestore"
	"windryft.app/pocket-windryft/internal/store"
)

// UploadFileHandler accepts a multipart form with a "file" part and records
// it against the project.
func (h *APIHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id", "project ID")
	if !ok {
		return
	}
	project, err := h.store.GetProject(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Project not found")
			return
		}
		writeError(w, err, "Failed to load project")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", h.maxUploadBytes))
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "Invalid file upload",
			Errors:  []fieldError{{Field: "file", Message: "is required"}},
		})
		return
	}
	defer file.Close()

	storagePath, err := h.files.Upload(r.Context(), uuid.New(), header.Filename, file)
	if err != nil {
		writeError(w, err, "Failed to store file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = filestore.ContentType(header.Filename)
	}
	record, err := h.store.CreateProjectFile(r.Context(), &store.ProjectFile{
		ProjectID:   project.ID,
		UserID:      project.UserID,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		StoragePath: storagePath,
	}, h.now())
	if err != nil {
		h.removeBlobs(r, storagePath)
		writeError(w, err, "Failed to record file")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *APIHandler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id", "project ID")
	if !ok {
		return
	}
	files, err := h.store.ListProjectFiles(r.Context(), projectID)
	if err != nil {
		writeError(w, err, "Failed to list files")
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (h *APIHandler) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "file ID")
	if !ok {
		return
	}
	record, err := h.store.GetProjectFile(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to load file")
		return
	}
	body, err := h.files.Download(r.Context(), record.StoragePath)
	if err != nil {
		writeError(w, err, "Failed to read file")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(record.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.Filename))
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("Error streaming file %d: %v", id, err)
	}
}

func (h *APIHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "file ID")
	if !ok {
		return
	}
	record, err := h.store.DeleteProjectFile(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to delete file")
		return
	}
	h.removeBlobs(r, record.StoragePath)
	w.WriteHeader(http.StatusNoContent)
}

// removeBlobs drops stored blobs whose records are gone. Failures only leave
// orphaned blobs, so they are logged.
func (h *APIHandler) removeBlobs(r *http.Request, paths ...string) {
	for _, p := range paths {
		if err := h.files.Delete(r.Context(), p); err != nil {
			log.Printf("Error deleting stored file %s: %v", p, err)
		}
	}
}
