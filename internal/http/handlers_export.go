package http

import (
	"bytes"
	"io"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, export.CSVFilename, export.CSVContentType, export.CSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.writeExport(w, r, export.XLSXFilename, export.XLSXContentType, export.XLSX)
}

// writeExport encodes the whole table as a download.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, filename, contentType string, encode func(io.Writer, []core.Transaction) error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	rows, err := s.tracker.All(ctx)
	if err != nil {
		s.storageFailure(w, r, "Failed to load transactions for export", err, applog.OpExport)
		return
	}

	var buf bytes.Buffer
	if err := encode(&buf, rows); err != nil {
		logger.LogError(ctx, "Failed to encode export", err, applog.OpExport, nil)
		InternalServerError("Could not build the export").Write(w)
		return
	}

	logger.DebugContext(ctx, "Export generated", "file", filename, applog.FieldRows, len(rows))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
}
