// Package visit runs a form submission end to end: signature gate,
// history append and report compilation.
package visit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xelth-com/eckreport/internal/logger"
	"github.com/xelth-com/eckreport/internal/models"
	"github.com/xelth-com/eckreport/internal/services/report"
	"github.com/xelth-com/eckreport/internal/session"
	"github.com/xelth-com/eckreport/internal/signature"
)

// ErrMissingSignature rejects a submission before anything is recorded
var ErrMissingSignature = errors.New("es necesario capturar la firma para generar el reporte")

// Result describes an accepted submission
type Result struct {
	Row    int                `json:"row"`
	Record models.VisitRecord `json:"record"`
	Bundle *report.Bundle     `json:"-"`
}

// Service processes submissions
type Service struct {
	compiler *report.Compiler
	logger   *zap.Logger
}

// NewService creates a submission service
func NewService(compiler *report.Compiler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{compiler: compiler, logger: logger}
}

// Submit captures the signature, records the visit and compiles the
// artifacts. Without a signature nothing is appended and no artifact is
// produced. Once the row is appended it stays, even if the document or
// image emitter later fails on the signature bytes.
func (s *Service) Submit(ctx context.Context, sess *session.Session, rec models.VisitRecord, src signature.Source) (*Result, error) {
	log := logger.FromContext(ctx, s.logger).With(zap.String("session", sess.ID))

	var result *Result
	err := sess.Exclusive(func() error {
		sig, err := src.Capture()
		if errors.Is(err, signature.ErrNoSignature) || (err == nil && len(sig) == 0) {
			log.Warn("⚠️ Submission without signature rejected")
			return ErrMissingSignature
		}
		if err != nil {
			return fmt.Errorf("signature capture failed: %w", err)
		}

		table := sess.Append(rec, sig)
		row := len(table.Rows)
		log.Info("📝 Visit recorded",
			zap.Int("row", row),
			zap.String("company", rec.Company),
			zap.String("purpose", string(rec.Purpose)))

		bundle := s.compiler.Compile(table, rec, sig)
		sess.SetBundle(bundle)

		if err := bundle.Err(); err != nil {
			log.Warn("⚠️ Report generated with failures", zap.Error(err))
		} else {
			log.Info("✅ Report generated",
				zap.Int("xlsx_bytes", len(bundle.Spreadsheet.Data)),
				zap.Int("pdf_bytes", len(bundle.Document.Data)),
				zap.Int("jpg_bytes", len(bundle.Image.Data)))
		}

		result = &Result{Row: row, Record: rec, Bundle: bundle}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// History regenerates the spreadsheet of the whole session history
func (s *Service) History(sess *session.Session) (report.Artifact, error) {
	records := sess.Records()
	a := report.Artifact{Kind: report.KindSpreadsheet, ContentType: report.ContentTypeSpreadsheet}
	if n := len(records); n > 0 {
		a.Filename = report.SpreadsheetFilename(records[n-1].Date)
	} else {
		a.Filename = report.SpreadsheetFilename(sess.CreatedAt)
	}

	a.Data, a.Err = s.compiler.Spreadsheet(models.NewTable(records))
	return a, a.Err
}
