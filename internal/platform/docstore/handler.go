package docstore

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/healthreport/pkg/pagination"
)

// Handler serves the document archive over HTTP.
type Handler struct {
	store Store
	// onDelete, when set, runs after a successful delete.
	onDelete func()
}

// NewHandler creates a Handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// OnDelete registers a callback run after each successful delete.
func (h *Handler) OnDelete(fn func()) { h.onDelete = fn }

// RegisterRoutes mounts archive routes on the supplied Echo group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/documents", h.handleList)
	g.GET("/documents/:id/metadata", h.handleMetadata)
	g.GET("/documents/:id", h.handleDownload)
	g.DELETE("/documents/:id", h.handleDelete)
}

func (h *Handler) handleList(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := ListParams{
		PatientID: c.QueryParam("patient_id"),
		Kind:      Kind(c.QueryParam("kind")),
		Limit:     pg.Limit,
		Offset:    pg.Offset,
	}
	if params.Kind != "" && !params.Kind.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown kind %q", params.Kind)})
	}
	var err error
	if params.CreatedAfter, err = timeParam(c, "created_after"); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if params.CreatedBefore, err = timeParam(c, "created_before"); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	items, total, err := h.store.List(c.Request().Context(), params)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if items == nil {
		items = []*Metadata{}
	}

	filters := url.Values{}
	for _, k := range []string{"patient_id", "kind", "created_after", "created_before"} {
		if v := c.QueryParam(k); v != "" {
			filters.Set(k, v)
		}
	}
	resp := pagination.NewResponse(items, total, pg.Limit, pg.Offset).
		WithLinks(pg.Links(c.Request().URL.Path, filters, total))
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) handleDownload(c echo.Context) error {
	content, meta, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}

	etag := `"` + meta.Hash + `"`
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}

	disposition := "inline"
	if c.QueryParam("download") == "true" {
		disposition = "attachment"
	}
	hdr := c.Response().Header()
	hdr.Set("ETag", etag)
	hdr.Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, meta.FileName))
	return c.Blob(http.StatusOK, meta.ContentType, content)
}

func (h *Handler) handleMetadata(c echo.Context) error {
	meta, err := h.store.Metadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(http.StatusOK, meta)
}

func (h *Handler) handleDelete(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return storeError(c, err)
	}
	if h.onDelete != nil {
		h.onDelete()
	}
	return c.NoContent(http.StatusNoContent)
}

func storeError(c echo.Context, err error) error {
	if errors.Is(err, ErrDocumentNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func timeParam(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC 3339", name)
	}
	return &t, nil
}
