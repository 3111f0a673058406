package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/logger"
	"github.com/xelth-com/eckreport/internal/middleware"
	"github.com/xelth-com/eckreport/internal/models"
	"github.com/xelth-com/eckreport/internal/services/report"
	"github.com/xelth-com/eckreport/internal/services/visit"
	"github.com/xelth-com/eckreport/internal/session"
	"github.com/xelth-com/eckreport/internal/signature"
)

// Multipart field names of the signature inputs
const (
	fieldCapture       = "capture"
	fieldSignatureCam  = "signature_camera"
	fieldSignatureFile = "signature_file"
	fieldSignatureDraw = "signature_canvas"
	fieldSignaturePad  = "signature_pad"

	latestReportsPrefix = "/api/reports/latest/"
)

// Download points the form at one generated artifact
type Download struct {
	Kind        report.Kind `json:"kind"`
	Filename    string      `json:"filename"`
	ContentType string      `json:"contentType"`
	URL         string      `json:"url,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// SubmitResponse is the body of an accepted submission
type SubmitResponse struct {
	Row       int                `json:"row"`
	Record    models.VisitRecord `json:"record"`
	Downloads []Download         `json:"downloads"`
}

func (r *Router) showForm(w http.ResponseWriter, req *http.Request) {
	data := struct {
		Form    models.FormDefaults
		Version string
	}{
		Form:    models.DefaultForm(time.Now()),
		Version: Version,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.form.Execute(w, data); err != nil {
		r.logger.Error("❌ Failed to render form", zap.Error(err))
	}
}

// submitVisit handles the form submission
func (r *Router) submitVisit(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.sessionOf(w, req)
	if !ok {
		return
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.cfg.Report.MaxUploadBytes+1<<20)
	if err := req.ParseMultipartForm(r.cfg.Report.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Form payload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid form payload")
		return
	}
	if req.MultipartForm != nil {
		defer req.MultipartForm.RemoveAll()
	}

	rec, err := models.ParseVisitForm(req.PostForm)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	src, err := r.signatureSource(req, sess)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := r.visits.Submit(req.Context(), sess, rec, src)
	switch {
	case errors.Is(err, visit.ErrMissingSignature):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, signature.ErrUnsupportedFormat):
		respondError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case err != nil:
		logger.FromContext(req.Context(), r.logger).Warn("⚠️ Submission rejected", zap.Error(err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, isPad := src.(signature.Pad); isPad {
		sess.Pad.Clear()
	}

	respondJSON(w, http.StatusCreated, SubmitResponse{
		Row:       res.Row,
		Record:    res.Record,
		Downloads: downloadsOf(res.Bundle),
	})
}

// signatureSource picks the capture variant chosen on the form
func (r *Router) signatureSource(req *http.Request, sess *session.Session) (signature.Source, error) {
	raw := req.PostFormValue(fieldCapture)
	if raw == "" {
		raw = string(signature.ModeCamera)
	}
	mode, err := signature.ParseMode(raw)
	if err != nil {
		return nil, err
	}

	switch mode {
	case signature.ModeCamera:
		return signature.Camera{Snapshot: formFile(req, fieldSignatureCam)}, nil
	case signature.ModeUpload:
		return signature.Upload{File: formFile(req, fieldSignatureFile), MaxBytes: r.cfg.Report.MaxUploadBytes}, nil
	case signature.ModeCanvas:
		return signature.Canvas{DataURL: req.PostFormValue(fieldSignatureDraw)}, nil
	default:
		// Strokes posted with the form win over the ones streamed on the socket
		if strokes := req.PostFormValue(fieldSignaturePad); strokes != "" {
			data, err := signature.ParsePadData([]byte(strokes))
			if err != nil {
				return nil, err
			}
			return signature.Pad{Data: data}, nil
		}
		return signature.Pad{Data: sess.Pad.Snapshot()}, nil
	}
}

func formFile(req *http.Request, field string) *multipart.FileHeader {
	if req.MultipartForm == nil {
		return nil
	}
	if files := req.MultipartForm.File[field]; len(files) > 0 {
		return files[0]
	}
	return nil
}

func downloadsOf(b *report.Bundle) []Download {
	var out []Download
	for _, a := range b.Artifacts() {
		d := Download{Kind: a.Kind, Filename: a.Filename, ContentType: a.ContentType}
		if a.OK() {
			d.URL = latestReportsPrefix + string(a.Kind)
		} else if a.Err != nil {
			d.Error = a.Err.Error()
		}
		out = append(out, d)
	}
	return out
}

// listVisits returns the session history as a table
func (r *Router) listVisits(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.sessionOf(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.Table())
}

// lastSignature serves the signature of the latest accepted submission
func (r *Router) lastSignature(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.sessionOf(w, req)
	if !ok {
		return
	}
	sig, ok := sess.LastSignature()
	if !ok {
		respondError(w, http.StatusNotFound, "No signature captured yet")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(sig))
	w.Header().Set("Content-Length", strconv.Itoa(len(sig)))
	w.Write(sig)
}

// endSession drops the history and clears the cookie
func (r *Router) endSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.sessionOf(w, req)
	if !ok {
		return
	}
	r.store.End(sess.ID)
	middleware.ClearSessionCookie(w, r.cfg.Session)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ended":   true,
		"session": sess.ID,
	})
}
