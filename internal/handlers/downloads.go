package handlers

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/logger"
	"github.com/xelth-com/eckreport/internal/services/report"
)

// QRCodeSize is the side of the form QR code in pixels
const QRCodeSize = 256

// downloadLatest serves one artifact of the latest submission
func (r *Router) downloadLatest(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.sessionOf(w, req)
	if !ok {
		return
	}

	bundle, ok := sess.Bundle()
	if !ok {
		respondError(w, http.StatusNotFound, "No report generated yet")
		return
	}

	a, ok := bundle.Get(report.Kind(mux.Vars(req)["kind"]))
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown report kind")
		return
	}
	if !a.OK() {
		msg := "Report not available"
		if a.Err != nil {
			msg = a.Err.Error()
		}
		respondError(w, http.StatusNotFound, msg)
		return
	}

	sendAttachment(w, a)
}

// downloadHistory regenerates the spreadsheet of the whole session
func (r *Router) downloadHistory(w http.ResponseWriter, req *http.Request) {
	sess, ok := r.sessionOf(w, req)
	if !ok {
		return
	}

	a, err := r.visits.History(sess)
	if err != nil {
		logger.FromContext(req.Context(), r.logger).Error("❌ Failed to build history spreadsheet", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to generate spreadsheet")
		return
	}
	sendAttachment(w, a)
}

// formQRCode renders a QR code pointing at the public form URL
func (r *Router) formQRCode(w http.ResponseWriter, req *http.Request) {
	target := r.cfg.PublicURL
	if target == "" {
		scheme := "http"
		if req.TLS != nil {
			scheme = "https"
		}
		target = scheme + "://" + req.Host + "/"
	}

	png, err := report.QRCode(target, QRCodeSize)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Write(png)
}

// sendAttachment writes a as a file download
func sendAttachment(w http.ResponseWriter, a report.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Data)))
	w.Write(a.Data)
}
