package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-observations/internal/middleware"
	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/service"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/export"
	"github.com/noah-isme/sma-observations/pkg/response"
)

type observationService interface {
	List(ctx context.Context, filter models.ObservationFilter) (*service.ObservationPage, bool, error)
	Get(ctx context.Context, id string) (*models.Observation, error)
	Create(ctx context.Context, req service.CreateObservationRequest) (*models.Observation, error)
	Replace(ctx context.Context, id string, next models.Observation) (*models.Observation, error)
	Delete(ctx context.Context, id string) error
}

type observationExporter interface {
	Export(ctx context.Context, filter models.Filter, format export.Format) (*service.ExportResult, error)
}

// ObservationHandler exposes the /observations resource.
type ObservationHandler struct {
	observations observationService
	exporter     observationExporter
}

// NewObservationHandler constructs ObservationHandler.
func NewObservationHandler(observations observationService, exporter observationExporter) *ObservationHandler {
	return &ObservationHandler{observations: observations, exporter: exporter}
}

// List godoc
// @Summary List observations
// @Description Accepts both page/limit/sort/order and the _page/_limit/_sort/_order forms.
// @Tags Observations
// @Produce json
// @Param filter query string false "all, active, completed or favorites"
// @Param isCompleted query bool false "Filter by completion"
// @Param isFavorite query bool false "Only favorites when true"
// @Param _page query int false "Page"
// @Param _limit query int false "Page size; omit for the whole collection"
// @Param _sort query string false "createdAt, studentName or completedAt"
// @Param _order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Header 200 {integer} X-Total-Count "Matching items"
// @Router /observations [get]
func (h *ObservationHandler) List(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, hit, err := h.observations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.List(c, page.Items, page.Pagination, middleware.ExtractMeta(c))
}

func listFilter(c *gin.Context) (models.ObservationFilter, error) {
	var filter models.ObservationFilter
	parsed, err := models.ParseFilter(c.Query("filter"))
	if err != nil {
		return filter, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	filter.Filter = parsed
	switch {
	case c.Query("isCompleted") == "true":
		filter.Filter = models.FilterCompleted
	case c.Query("isCompleted") == "false":
		filter.Filter = models.FilterActive
	case c.Query("isFavorite") == "true":
		filter.Filter = models.FilterFavorites
	}

	if filter.Page, err = intQuery(c, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(c, "limit"); err != nil {
		return filter, err
	}
	filter.SortBy = firstQuery(c, "_sort", "sort")
	filter.SortOrder = strings.ToLower(firstQuery(c, "_order", "order"))
	return filter, nil
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return v
		}
	}
	return ""
}

// intQuery reads name or _name. Missing values are zero.
func intQuery(c *gin.Context, name string) (int, error) {
	raw := firstQuery(c, "_"+name, name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" parameter")
	}
	return v, nil
}

// Get godoc
// @Summary Get observation
// @Tags Observations
// @Produce json
// @Param id path string true "Observation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /observations/{id} [get]
func (h *ObservationHandler) Get(c *gin.Context) {
	observation, err := h.observations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, observation, nil)
}

// Create godoc
// @Summary Create observation
// @Tags Observations
// @Accept json
// @Produce json
// @Param payload body service.CreateObservationRequest true "Observation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /observations [post]
func (h *ObservationHandler) Create(c *gin.Context) {
	var req service.CreateObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	observation, err := h.observations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, observation)
}

// Replace godoc
// @Summary Replace observation
// @Tags Observations
// @Accept json
// @Produce json
// @Param id path string true "Observation ID"
// @Param payload body models.Observation true "Full observation"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /observations/{id} [put]
func (h *ObservationHandler) Replace(c *gin.Context) {
	var next models.Observation
	if err := c.ShouldBindJSON(&next); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	observation, err := h.observations.Replace(c.Request.Context(), c.Param("id"), next)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, observation, nil)
}

// Delete godoc
// @Summary Delete observation
// @Tags Observations
// @Param id path string true "Observation ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /observations/{id} [delete]
func (h *ObservationHandler) Delete(c *gin.Context) {
	if err := h.observations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export observations
// @Tags Observations
// @Produce text/csv
// @Produce application/pdf
// @Param filter query string false "all, active, completed or favorites"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /observations/export [get]
func (h *ObservationHandler) Export(c *gin.Context) {
	filter, err := models.ParseFilter(c.Query("filter"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	result, err := h.exporter.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
