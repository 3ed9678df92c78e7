package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/osmap/backend/internal/application/mapexport"
	"github.com/osmap/backend/internal/domain/dispatch"
	"github.com/osmap/backend/internal/infrastructure/logger"
	"github.com/osmap/backend/internal/interfaces/http/dto"
	"github.com/osmap/backend/internal/interfaces/http/middleware"
)

// Response headers of document downloads
const (
	HeaderSkippedOrders   = "X-Skipped-Orders"
	HeaderFallbackMarkers = "X-Fallback-Markers"
	HeaderArtifactURL     = "X-Artifact-URL"
)

// MapExporter is the map export use case surface the handler needs
type MapExporter interface {
	PreviewOrder(ctx context.Context, orderID string) (*dispatch.Marker, error)
	LookupClient(ctx context.Context, clientID string) (*dispatch.ClientRecord, error)
	ExportOrder(ctx context.Context, orderID string) (*dispatch.Artifact, error)
	ExportFiltered(ctx context.Context, slugs dispatch.FilterSlugs) (*mapexport.FilteredExport, error)
	ListOpenOrders(ctx context.Context, query mapexport.OpenOrdersQuery) (*mapexport.OpenOrders, error)
}

// ArtifactReader opens written documents by their store-relative path
type ArtifactReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// MapExportHandler serves the order lookups and KML exports
type MapExportHandler struct {
	BaseHandler
	service   MapExporter
	artifacts ArtifactReader
}

// NewMapExportHandler creates a new MapExportHandler
func NewMapExportHandler(service MapExporter, artifacts ArtifactReader) *MapExportHandler {
	return &MapExportHandler{
		service:   service,
		artifacts: artifacts,
	}
}

// GetOrder godoc
// @ID           getOrderMarker
// @Summary      Preview the marker of an order
// @Description  Resolves the order and its client and returns the marker without writing a document
// @Tags         export
// @Produce      json
// @Param        order_id path string true "Order ID"
// @Success      200 {object} APIResponse[dispatch.Marker]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /order/{order_id} [get]
func (h *MapExportHandler) GetOrder(c *gin.Context) {
	var req dto.OrderPathRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	marker, err := h.service.PreviewOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, marker)
}

// GetClient godoc
// @ID           getClient
// @Summary      Get an active client
// @Description  Returns the CRM client record when the client passes the activation gate
// @Tags         export
// @Produce      json
// @Param        client_id path string true "Client ID"
// @Success      200 {object} APIResponse[dispatch.ClientRecord]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /client/{client_id} [get]
func (h *MapExportHandler) GetClient(c *gin.Context) {
	var req dto.ClientPathRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	client, err := h.service.LookupClient(c.Request.Context(), req.ClientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// CreateMarker godoc
// @ID           createOrderMarker
// @Summary      Export one order as KML
// @Description  Writes a one-placemark KML document for the order and returns it as an attachment
// @Tags         export
// @Produce      application/vnd.google-earth.kml+xml
// @Param        order_id path string true "Order ID"
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /marker_create/{order_id} [get]
func (h *MapExportHandler) CreateMarker(c *gin.Context) {
	var req dto.OrderPathRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	artifact, err := h.service.ExportOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.sendArtifact(c, artifact, nil)
}

// ListOpenOrders godoc
// @ID           listOpenOrders
// @Summary      List open orders for a filter
// @Description  Lists the open orders of a city and service type, the candidates of a batch export
// @Tags         export
// @Produce      json
// @Param        cidade query string false "City slug"
// @Param        tipo   query string false "Service type slug"
// @Param        campo1 query string false "CRM search field, replaces the open order search"
// @Param        valor1 query string false "CRM search value"
// @Success      200 {object} APIResponse[dto.OpenOrdersResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /get_open_order/ [get]
func (h *MapExportHandler) ListOpenOrders(c *gin.Context) {
	var req dto.OpenOrdersQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	orders, err := h.service.ListOpenOrders(c.Request.Context(), req.ToQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewOpenOrdersResponse(orders))
}

// ListMarkerCreate godoc
// @ID           createFilteredMarkers
// @Summary      Export all open orders of a filter as KML
// @Description  Writes one placemark per open order of the city and service type. Orders that cannot be placed are skipped and counted in X-Skipped-Orders.
// @Tags         export
// @Produce      application/vnd.google-earth.kml+xml
// @Param        cidade query string false "City slug"
// @Param        tipo   query string false "Service type slug"
// @Success      200 {file} file
// @Header       200 {integer} X-Skipped-Orders "Orders left out of the document"
// @Header       200 {integer} X-Fallback-Markers "Markers placed at the fallback point"
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /list_marker_create/ [get]
func (h *MapExportHandler) ListMarkerCreate(c *gin.Context) {
	var req dto.FilterQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	export, err := h.service.ExportFiltered(c.Request.Context(), req.Slugs())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.sendArtifact(c, export.Artifact, map[string]string{
		HeaderSkippedOrders:   strconv.Itoa(len(export.Skipped)),
		HeaderFallbackMarkers: strconv.Itoa(export.Fallbacks),
	})
}

// DownloadArtifact godoc
// @ID           downloadArtifact
// @Summary      Download a written document
// @Description  Serves a previously exported KML document by its storage path
// @Tags         export
// @Produce      application/vnd.google-earth.kml+xml
// @Param        path path string true "Artifact path, e.g. 2026/10/OS 4521 MAP.kml"
// @Success      200 {file} file
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /artifacts/{path} [get]
func (h *MapExportHandler) DownloadArtifact(c *gin.Context) {
	relPath := c.Param("path")

	rc, err := h.artifacts.Open(c.Request.Context(), relPath)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, dispatch.KMLContentType, rc, map[string]string{
		"Content-Disposition": attachment(path.Base(relPath)),
	})
}

// sendArtifact streams a freshly written document back to the caller
func (h *MapExportHandler) sendArtifact(c *gin.Context, artifact *dispatch.Artifact, extra map[string]string) {
	rc, err := h.artifacts.Open(c.Request.Context(), artifact.Path)
	if err != nil {
		logger.L(c.Request.Context()).Error("Written artifact could not be reopened",
			zap.String("path", artifact.Path),
			zap.Error(err))
		h.HandleError(c, dispatch.NewExportFailedError(err))
		return
	}
	defer rc.Close()

	headers := map[string]string{
		"Content-Disposition": attachment(artifact.Name),
		HeaderArtifactURL:     artifact.URL,
	}
	for k, v := range extra {
		headers[k] = v
	}

	contentType := artifact.ContentType
	if contentType == "" {
		contentType = dispatch.KMLContentType
	}
	size := artifact.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, contentType, rc, headers)
}

// attachment builds a Content-Disposition value; names with accents are
// encoded per RFC 2231
func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
