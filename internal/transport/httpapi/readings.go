package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/septivank/rent-manager/internal/domain"
	"github.com/septivank/rent-manager/internal/logging"
	"github.com/septivank/rent-manager/internal/service"
	"github.com/septivank/rent-manager/internal/validator"
)

// submitReading accepts a multipart form with meter_type, reading_value, an
// optional date and an optional image file.
func (s *Server) submitReading(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.handleError(w, r, domain.Invalid("body", "must be a multipart form no larger than 10MB"))
		return
	}

	in := validator.ReadingInput{
		Meter: r.FormValue("meter_type"),
		Value: r.FormValue("reading_value"),
		Date:  r.FormValue("date"),
	}

	var upload *service.Upload
	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		upload = &service.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		s.handleError(w, r, domain.Invalid("image", "could not be read"))
		return
	}

	out, err := s.svc.UploadReading(r.Context(), tenant(r), in, upload)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	view := toReadingView(out.Reading)
	if out.Flag != nil {
		view.Flag, view.FlagReason = string(out.Flag.Flag), out.Flag.Reason
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Reading submitted successfully",
		"reading": view,
	})
}

func (s *Server) readingImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, err := s.svc.OpenReadingImage(r.Context(), accountFrom(r.Context()), key)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("failed to stream reading image", zap.Error(err), zap.String("key", key))
	}
}

func (s *Server) ownerReadings(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.OwnerReadings(r.Context(), owner(r))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	out := make([]readingView, 0, len(list))
	for _, or := range list {
		v := toReadingView(or.Reading)
		v.TenantCode, v.TenantName = or.TenantCode, or.TenantName
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}
