package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/catalog"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/dto"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/middleware"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/response"
)

type sessionService interface {
	Open(ctx context.Context, operatorID, registrationID string) (*dto.EquivalenceSessionView, error)
	View(operatorID, registrationID string) (*dto.EquivalenceSessionView, error)
	Close(operatorID, registrationID string) error
	Reload(ctx context.Context, operatorID, registrationID string) (*dto.ReloadSessionResponse, error)
	SetFilter(operatorID, registrationID, field, value string) (*catalog.View, error)
	ClearFilters(operatorID, registrationID string) (*catalog.View, error)
	LoadMore(operatorID, registrationID string) (*dto.LoadMoreResponse, error)
	Toggle(operatorID, registrationID, subjectID string) (*dto.ToggleSubjectResponse, error)
	Save(ctx context.Context, operatorID, registrationID string) (*dto.SaveSelectionResponse, error)
}

// SessionHandler exposes the equivalence editing session of a registration.
type SessionHandler struct {
	service  sessionService
	validate *validator.Validate
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(service sessionService, validate *validator.Validate) *SessionHandler {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterStructValidation(validateSetFilter, dto.SetFilterRequest{})
	return &SessionHandler{service: service, validate: validate}
}

func validateSetFilter(sl validator.StructLevel) {
	req := sl.Current().Interface().(dto.SetFilterRequest)
	if models.FilterKey(req.Field) != models.FilterSemester || req.Value == "" {
		return
	}
	if _, ok := models.ParseSemester(req.Value); !ok {
		sl.ReportError(req.Value, "Value", "value", "semester", "")
	}
}

// Open godoc
// @Summary Open the equivalence editor for a registration
// @Description Loads the registration's saved equivalents and starts the catalog search. Reopening returns the existing session.
// @Tags Equivalence
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session [post]
func (h *SessionHandler) Open(c *gin.Context) {
	view, err := h.service.Open(c.Request.Context(), operatorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "epoch", view.Catalog.Epoch)
	response.OK(c, view, middleware.ExtractMeta(c))
}

// View godoc
// @Summary Get the current session state
// @Tags Equivalence
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session [get]
func (h *SessionHandler) View(c *gin.Context) {
	view, err := h.service.View(operatorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "epoch", view.Catalog.Epoch)
	response.OK(c, view, middleware.ExtractMeta(c))
}

// Close godoc
// @Summary Close the session and discard unsaved changes
// @Tags Equivalence
// @Param id path string true "Registration ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.service.Close(operatorID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reload godoc
// @Summary Re-read the registration
// @Description Resets the selection when the saved equivalents changed elsewhere.
// @Tags Equivalence
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session/reload [post]
func (h *SessionHandler) Reload(c *gin.Context) {
	result, err := h.service.Reload(c.Request.Context(), operatorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, middleware.ExtractMeta(c))
}

// SetFilter godoc
// @Summary Update a catalog filter field or the search term
// @Description The catalog is refetched once edits settle.
// @Tags Equivalence
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.SetFilterRequest true "Filter change"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session/filters [patch]
func (h *SessionHandler) SetFilter(c *gin.Context) {
	var req dto.SetFilterRequest
	if !h.bind(c, &req, "invalid filter payload") {
		return
	}
	view, err := h.service.SetFilter(operatorID(c), c.Param("id"), req.Field, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, view, middleware.ExtractMeta(c))
}

// ClearFilters godoc
// @Summary Clear every catalog filter
// @Tags Equivalence
// @Produce json
// @Param id path string true "Registration ID"
// @Success 202 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session/filters [delete]
func (h *SessionHandler) ClearFilters(c *gin.Context) {
	view, err := h.service.ClearFilters(operatorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, view, middleware.ExtractMeta(c))
}

// LoadMore godoc
// @Summary Load the next catalog page
// @Description Also retries a page whose fetch failed. requested is false when nothing more can be loaded yet.
// @Tags Equivalence
// @Produce json
// @Param id path string true "Registration ID"
// @Success 202 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session/catalog/more [post]
func (h *SessionHandler) LoadMore(c *gin.Context) {
	result, err := h.service.LoadMore(operatorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusAccepted
	if !result.Requested {
		status = http.StatusOK
	}
	response.JSON(c, status, result, middleware.ExtractMeta(c))
}

// Toggle godoc
// @Summary Select or deselect a subject as equivalent
// @Tags Equivalence
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body dto.ToggleSubjectRequest true "Subject"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session/selection/toggle [post]
func (h *SessionHandler) Toggle(c *gin.Context) {
	var req dto.ToggleSubjectRequest
	if !h.bind(c, &req, "invalid toggle payload") {
		return
	}
	result, err := h.service.Toggle(operatorID(c), c.Param("id"), req.SubjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, middleware.ExtractMeta(c))
}

// Save godoc
// @Summary Save the selection
// @Description Submits only the subjects added and removed since the last save.
// @Tags Equivalence
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "save already in progress"
// @Failure 412 {object} response.Envelope "nothing to save"
// @Failure 502 {object} response.Envelope
// @Router /registrations/{id}/equivalence-session/save [post]
func (h *SessionHandler) Save(c *gin.Context) {
	result, err := h.service.Save(c.Request.Context(), operatorID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result, middleware.ExtractMeta(c))
}

func (h *SessionHandler) bind(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, message))
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation, message))
		return false
	}
	return true
}
