package healthreport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/healthreport/internal/layout"
	"github.com/ehr/healthreport/internal/platform/auth"
	"github.com/ehr/healthreport/internal/report"
	"github.com/ehr/healthreport/internal/score"
)

// Response headers carrying document details next to the PDF body.
const (
	HeaderDocumentID = "X-Document-ID"
	HeaderPageCount  = "X-Page-Count"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/reports/render", h.RenderReport, auth.RequireRole(auth.RoleClinician))

	patients := api.Group("/patients/:id", auth.RequirePatientAccess("id"))
	patients.GET("/report", h.GetReport)
	patients.GET("/score", h.GetScore)
	patients.GET("/records/document", h.GetCombinedRecords)
	patients.GET("/records/:recordId/document", h.GetRecordDocument)
}

// ScoreResponse is the JSON body of the score endpoint.
type ScoreResponse struct {
	PatientID string       `json:"patient_id"`
	Score     string       `json:"score"`
	Label     string       `json:"label"`
	Breakdown score.Result `json:"breakdown"`
}

func (h *Handler) RenderReport(c echo.Context) error {
	var d report.Data
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report data")
	}
	ctx := c.Request().Context()
	doc, err := h.svc.RenderMain(ctx, &d, c.QueryParam("patient_id"), auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return sendDocument(c, doc)
}

func (h *Handler) GetReport(c echo.Context) error {
	patientID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	opts, err := snapshotOptions(c, h.svc.now())
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	doc, err := h.svc.MainReport(ctx, patientID, opts, auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return sendDocument(c, doc)
}

func (h *Handler) GetScore(c echo.Context) error {
	patientID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	result, err := h.svc.Score(c.Request().Context(), patientID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, ScoreResponse{
		PatientID: patientID.String(),
		Score:     result.String(),
		Label:     layout.ScoreLabel(result.Value),
		Breakdown: result,
	})
}

func (h *Handler) GetCombinedRecords(c echo.Context) error {
	patientID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	doc, err := h.svc.CombinedRecords(ctx, patientID, auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return sendDocument(c, doc)
}

func (h *Handler) GetRecordDocument(c echo.Context) error {
	patientID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	recordID, err := uuidParam(c, "recordId")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	doc, err := h.svc.SingleRecord(ctx, patientID, recordID, auth.UserIDFromContext(ctx))
	if err != nil {
		return mapError(err)
	}
	return sendDocument(c, doc)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

// snapshotOptions reads ?full_id=true and either ?since=<RFC 3339> or
// ?days=<n>.
func snapshotOptions(c echo.Context, now time.Time) (SnapshotOptions, error) {
	opts := SnapshotOptions{ShowFullIdentifier: c.QueryParam("full_id") == "true"}
	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, echo.NewHTTPError(http.StatusBadRequest, "since must be RFC 3339")
		}
		opts.Since = t
	} else if v := c.QueryParam("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return opts, echo.NewHTTPError(http.StatusBadRequest, "days must be a positive integer")
		}
		opts.Since = now.AddDate(0, 0, -days)
	}
	return opts, nil
}

func sendDocument(c echo.Context, doc *Generated) error {
	hdr := c.Response().Header()
	hdr.Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, doc.Metadata.FileName))
	hdr.Set(HeaderPageCount, strconv.Itoa(doc.Metadata.Pages))
	if doc.Metadata.ID != "" {
		hdr.Set(HeaderDocumentID, doc.Metadata.ID)
	}
	return c.Blob(http.StatusOK, doc.Metadata.ContentType, doc.Content)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoSource):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, report.ErrNilData):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "document generation failed")
}
