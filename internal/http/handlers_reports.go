package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"montra/internal/core"
	"montra/internal/export"
	applog "montra/internal/log"
	"montra/internal/report"
	"montra/internal/sheets"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.CachedDashboard(r.Context(), userID(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(d).Write(w)
}

// handleAnnualReport serves the yearly report; year defaults to the current
// one.
func (s *Server) handleAnnualReport(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query().Get("year"), s.reports.Now().Year())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rep, err := s.reports.CachedAnnual(r.Context(), userID(r), year)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	NewResponse().JSON(rep).Write(w)
}

// exportFile loads the statement of the requested period, renders it with
// write and sends it as an attachment.
func (s *Server) exportFile(w http.ResponseWriter, r *http.Request, format, def, contentType, filename string, write func(io.Writer, report.Statement) error) {
	ctx, uid := r.Context(), userID(r)
	st, err := s.reports.Statement(ctx, uid, r.URL.Query().Get("period"), def)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, st); err != nil {
		WriteError(w, r, err)
		return
	}
	s.countExport()
	applog.FromContext(ctx).WithComponent(applog.ComponentExport).InfoContext(ctx, "Report exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldUserID, uid,
		applog.FieldFormat, format,
		applog.FieldPeriod, st.Period,
		applog.FieldCount, len(st.Transactions))
	NewResponse().Attachment(contentType, filename, buf.Bytes()).Write(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.exportFile(w, r, "csv", core.PeriodAll, export.CSVContentType, export.CSVFilename, export.WriteCSV)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.exportFile(w, r, "pdf", core.PeriodMonth, export.PDFContentType, export.PDFFilename, export.WritePDF)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.exportFile(w, r, "xlsx", core.PeriodAll, export.XLSXContentType, export.XLSXFilename, export.WriteXLSX)
}

// handleExportSheets replaces the caller's tab of the configured spreadsheet
// with the statement rows.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	if s.sheets == nil {
		WriteError(w, r, sheets.ErrNotConfigured)
		return
	}
	st, err := s.reports.Statement(ctx, uid, r.URL.Query().Get("period"), core.PeriodAll)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	res, err := s.sheets.ExportRows(ctx, sheets.UserSheet(s.sheetName, uid), export.Rows(st))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	s.countExport()
	applog.FromContext(ctx).WithComponent(applog.ComponentSheets).InfoContext(ctx, "Report exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldUserID, uid,
		applog.FieldFormat, "sheets",
		applog.FieldPeriod, st.Period,
		applog.FieldCount, res.Rows)
	NewResponse().JSON(res).Write(w)
}

// handleChart renders /api/charts/{categories|monthly|daily}.png from the
// dashboard data. A chart without data answers 204.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ctx, uid := r.Context(), userID(r)
	kind, ok := strings.CutSuffix(r.PathValue("chart"), ".png")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	d, err := s.reports.CachedDashboard(ctx, uid)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	prefs, err := s.reports.Preferences(ctx, uid)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	png, err := export.ChartPNG(kind, d, prefs)
	switch {
	case errors.Is(err, export.ErrUnknownChart):
		NotFoundError("unknown chart").Write(w)
	case errors.Is(err, export.ErrNoChartData):
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		WriteError(w, r, err)
	default:
		NewResponse().Body(export.PNGContentType, png).Write(w)
	}
}
