// Package handler exposes the lead lifecycle over HTTP.
package handler

import (
	"net/http"

	"crmops_backend/internal/leads/activities"
	"crmops_backend/internal/leads/conversion"
	"crmops_backend/internal/leads/management"
	"crmops_backend/internal/leads/transport"
	"crmops_backend/platform/httpkit"
	"crmops_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead id"

	roleAdmin   = "admin"
	roleManager = "manager"
	roleStaff   = "staff"
)

type Handler struct {
	management *management.Service
	conversion *conversion.Service
	activities *activities.Service
	val        *validator.Validator
}

func New(managementSvc *management.Service, conversionSvc *conversion.Service, activitiesSvc *activities.Service, val *validator.Validator) *Handler {
	return &Handler{
		management: managementSvc,
		conversion: conversionSvc,
		activities: activitiesSvc,
		val:        val,
	}
}

// RegisterRoutes adds the lead routes to an authenticated router group.
// Reads are open to any authenticated user; writes are role-gated.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	writers := httpkit.RequireAnyRole(roleAdmin, roleManager, roleStaff)
	archivers := httpkit.RequireAnyRole(roleAdmin, roleManager)

	rg.GET("", h.List)
	rg.GET("/summary", h.Summary)
	rg.GET("/:id", h.Get)
	rg.POST("", writers, h.Create)
	rg.PUT("/:id", writers, h.Update)
	rg.DELETE("/:id", archivers, h.Archive)
	rg.POST("/:id/convert", writers, h.Convert)
	rg.GET("/:id/activities", h.ListActivities)
	rg.POST("/:id/activities", writers, h.CreateActivity)
}

func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	input := management.ListInput{
		Search:   req.Search,
		Status:   req.Status,
		Priority: req.Priority,
		Page:     req.Page,
		Limit:    req.Limit,
	}
	if req.AssignedTo != "" {
		assignedTo, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid assignedTo filter", nil)
			return
		}
		input.AssignedTo = &assignedTo
	}
	if req.Source != "" {
		input.Source = &req.Source
	}
	if req.IsActive != "" {
		isActive := req.IsActive == "true"
		input.IsActive = &isActive
	}

	leads, total, err := h.management.List(c.Request.Context(), identity.TenantID(), input)
	if httpkit.HandleError(c, err) {
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = 20
	}
	httpkit.List(c, transport.ToLeadResponses(leads), len(leads), httpkit.NewPagination(page, limit, total))
}

func (h *Handler) Summary(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	summary, err := h.management.Summary(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToSummaryResponse(summary))
}

func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	detail, err := h.management.GetDetail(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLeadDetailResponse(detail))
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	actorID := identity.UserID()
	lead, err := h.management.Create(c.Request.Context(), identity.TenantID(), &actorID, management.CreateLeadInput{
		Name:         req.Name,
		Company:      req.Company,
		Email:        req.Email,
		Phone:        req.Phone,
		Source:       req.Source,
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedTo:   req.AssignedTo,
		NextFollowUp: req.NextFollowUp,
		Notes:        req.Notes,
		Tags:         req.Tags,
		Metadata:     req.Metadata,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	actorID := identity.UserID()
	input := management.UpdateLeadInput{
		Name:     req.Name,
		Company:  req.Company,
		Email:    req.Email,
		Phone:    req.Phone,
		Source:   req.Source,
		Status:   req.Status,
		Priority: req.Priority,
		Notes:    req.Notes,
	}
	if req.AssignedTo.Set {
		input.AssignedTo = req.AssignedTo.Value
		input.AssignedToSet = true
	}
	if req.NextFollowUp.Set {
		input.NextFollowUp = req.NextFollowUp.Value
		input.NextFollowUpSet = true
	}
	if req.Tags != nil {
		input.Tags = req.Tags
		input.TagsSet = true
	}
	if req.Metadata != nil {
		input.Metadata = req.Metadata
		input.MetadataSet = true
	}

	lead, err := h.management.Update(c.Request.Context(), id, identity.TenantID(), &actorID, input)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Archive(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	lead, err := h.management.Archive(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OKMessage(c, transport.ToLeadResponse(lead), "lead archived")
}

func (h *Handler) Convert(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	actorID := identity.UserID()
	result, err := h.conversion.Convert(c.Request.Context(), id, identity.TenantID(), &actorID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ConvertLeadResponse{
		Lead: transport.ToLeadResponse(result.Lead),
		Customer: transport.CustomerResponse{
			ID:        result.Customer.ID,
			TenantID:  result.Customer.TenantID,
			Name:      result.Customer.Name,
			Company:   result.Customer.Company,
			Email:     result.Customer.Email,
			Phone:     result.Customer.Phone,
			Notes:     result.Customer.Notes,
			CreatedAt: result.Customer.CreatedAt,
		},
	}

	if result.AlreadyConverted {
		httpkit.OKMessage(c, resp, "Lead already converted")
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListActivities(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	items, err := h.activities.List(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.List(c, transport.ToActivityResponses(items), len(items), nil)
}

func (h *Handler) CreateActivity(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	actorID := identity.UserID()
	activity, err := h.activities.Log(c.Request.Context(), id, identity.TenantID(), &actorID, activities.LogInput{
		Type:         req.Type,
		Subject:      req.Subject,
		Notes:        req.Notes,
		NextStep:     req.NextStep,
		FollowUpDate: req.FollowUpDate,
		Status:       req.Status,
		Metadata:     req.Metadata,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToActivityResponse(activity))
}
