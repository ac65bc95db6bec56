/*
media.go - Student QR codes and photo uploads

QR CODE:
  GET /api/students/{id}/qrcode
  PNG encoding <public_url>/student/{id}, medium error correction, 256px.

PHOTO UPLOAD:
  POST /api/students/{id}/photo   (multipart/form-data, field "photo")
  - JPG or PNG, at most 2 MB
  - decoded, fitted into 400x400 (aspect kept), re-encoded as JPEG
  - stored as <photos_dir>/student_<id>_<unixnano>.jpg
  - the previous file is removed once the new path is saved
*/
package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
	"github.com/warp/student-ledger/generic"
	"go.uber.org/zap"
)

const (
	maxPhotoBytes = 2 << 20
	photoSize     = 400
	qrSize        = 256

	// photoURLPrefix is where the static file server exposes PhotosDir.
	photoURLPrefix = "student_photos"
)

// StudentQRCode renders the public profile URL of a student as a PNG.
func (h *Handler) StudentQRCode(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error generating QR code")
		return
	}
	student, err := h.Store.GetStudent(r.Context(), generic.StudentID(id))
	if err != nil {
		h.writeDomainError(w, r, err, "Error generating QR code")
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}

	png, err := qrcode.Encode(studentURL(h.Config.PublicURL, student.ID), qrcode.Medium, qrSize)
	if err != nil {
		h.writeDomainError(w, r, err, "Error generating QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func studentURL(base string, id generic.StudentID) string {
	return fmt.Sprintf("%s/student/%d", strings.TrimRight(base, "/"), id)
}

// UploadPhoto stores a resized student photo.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeDomainError(w, r, err, "Error uploading photo")
		return
	}
	studentID := generic.StudentID(id)

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+64<<10)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusBadRequest, "File too large. Maximum size is 2MB")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxPhotoBytes {
		writeError(w, http.StatusBadRequest, "File too large. Maximum size is 2MB")
		return
	}
	if !allowedPhoto(header.Filename, header.Header.Get("Content-Type")) {
		writeError(w, http.StatusBadRequest, "Only JPG and PNG images are allowed")
		return
	}

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Uploaded file is not a valid image")
		return
	}

	student, err := h.Store.GetStudent(r.Context(), studentID)
	if err != nil {
		h.writeDomainError(w, r, err, "Error uploading photo")
		return
	}
	if student == nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}

	if err := os.MkdirAll(h.Config.PhotosDir, 0o755); err != nil {
		h.writeDomainError(w, r, err, "Error uploading photo")
		return
	}
	name := fmt.Sprintf("student_%d_%d.jpg", studentID, time.Now().UnixNano())
	dst := filepath.Join(h.Config.PhotosDir, name)
	fitted := imaging.Fit(img, photoSize, photoSize, imaging.Lanczos)
	if err := imaging.Save(fitted, dst, imaging.JPEGQuality(85)); err != nil {
		h.writeDomainError(w, r, err, "Error uploading photo")
		return
	}

	stored := path.Join(photoURLPrefix, name)
	previous, err := h.Store.SetStudentPhoto(r.Context(), studentID, stored)
	if err != nil {
		os.Remove(dst)
		h.writeDomainError(w, r, err, "Error uploading photo")
		return
	}
	if previous != "" && previous != stored {
		h.removePhoto(previous)
	}
	h.Log.Info("student photo updated", zap.Int64("student_id", id), zap.String("photo", stored))

	writeJSON(w, http.StatusOK, PhotoResponse{
		Success: true,
		Message: "Photo uploaded successfully",
		Photo:   stored,
	})
}

// PhotoResponse reports the stored photo path.
type PhotoResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Photo   string `json:"photo"`
}

func allowedPhoto(filename, contentType string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
	default:
		return false
	}
	switch contentType {
	case "", "application/octet-stream", "image/jpeg", "image/jpg", "image/png":
		return true
	}
	return false
}
