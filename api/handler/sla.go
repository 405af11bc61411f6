package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/workreport/backend/api/transport"
	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/httpcontext"
	"github.com/workreport/backend/repository"
	taskUC "github.com/workreport/backend/usecase/task"
)

// PolicyInvalidator drops cached policies after a settings change so the
// next resolution sees fresh values.
type PolicyInvalidator interface {
	Invalidate(ctx context.Context)
}

// SlaHandler serves the SLA dashboard surface: urgent lists, project
// stats, projects and the operator-tunable policy settings.
type SlaHandler struct {
	baseHandler
	uc       *taskUC.UseCase
	projects repository.ProjectRepository
	settings repository.SettingsRepository
	cache    PolicyInvalidator
}

func NewSlaHandler(
	uc *taskUC.UseCase,
	projects repository.ProjectRepository,
	settings repository.SettingsRepository,
	cache PolicyInvalidator,
	adapter *httpcontext.Adapter,
	logger *zap.Logger,
) *SlaHandler {
	return &SlaHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		projects:    projects,
		settings:    settings,
		cache:       cache,
	}
}

// @Summary Urgent tasks, most at-risk first
// @Tags sla
// @Router /api/v1/sla/urgent [get]
func (h *SlaHandler) Urgent(ctx *fasthttp.RequestCtx) {
	filter := repository.TaskFilter{
		ProjectID: string(ctx.QueryArgs().Peek("project_id")),
		Assignee:  string(ctx.QueryArgs().Peek("assignee")),
		Limit:     parseInt(string(ctx.QueryArgs().Peek("limit")), 100),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.uc.UrgentTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}

// @Summary Project SLA stats
// @Tags sla
// @Router /api/v1/sla/stats [get]
func (h *SlaHandler) Stats(ctx *fasthttp.RequestCtx) {
	projectID := string(ctx.QueryArgs().Peek("project_id"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.Stats(stdCtx, projectID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}

// @Summary List projects
// @Tags sla
// @Router /api/v1/projects [get]
func (h *SlaHandler) ListProjects(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	projects, err := h.projects.List(stdCtx,
		parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		parseInt(string(ctx.QueryArgs().Peek("offset")), 0))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, projects)
}

// @Summary Create or update a project
// @Tags sla
// @Router /api/v1/projects [post]
func (h *SlaHandler) UpsertProject(ctx *fasthttp.RequestCtx) {
	var req transport.ProjectRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Name == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	project := &domain.Project{
		ID:       req.ID,
		Name:     req.Name,
		SlaHours: req.SlaHours,
	}
	if err := h.projects.Upsert(stdCtx, project); err != nil {
		h.respondError(ctx, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(stdCtx)
	}
	h.respondSuccess(ctx, http.StatusOK, project)
}

// @Summary Current SLA settings
// @Tags sla
// @Router /api/v1/sla/settings [get]
func (h *SlaHandler) GetSettings(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	hours, err := h.settings.Get(stdCtx, repository.SettingSlaHours)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	thresholds, err := h.settings.Get(stdCtx, repository.SettingSlaThresholds)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	payload := map[string]string{
		repository.SettingSlaHours:      hours,
		repository.SettingSlaThresholds: thresholds,
	}
	h.respondSuccess(ctx, http.StatusOK, payload)
}

// @Summary Update SLA settings
// @Tags sla
// @Router /api/v1/sla/settings [put]
func (h *SlaHandler) UpdateSettings(ctx *fasthttp.RequestCtx) {
	var req transport.SlaSettingsRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	if req.SlaHours < 0 || req.AmberHours < 0 || req.RedHours < 0 {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "hours must be non-negative", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if req.SlaHours > 0 {
		if err := h.settings.Set(stdCtx, repository.SettingSlaHours, strconv.Itoa(req.SlaHours)); err != nil {
			h.respondError(ctx, err)
			return
		}
	}
	if req.AmberHours > 0 || req.RedHours > 0 {
		thresholds, err := json.Marshal(map[string]int{
			"amber": req.AmberHours,
			"red":   req.RedHours,
		})
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		if err := h.settings.Set(stdCtx, repository.SettingSlaThresholds, string(thresholds)); err != nil {
			h.respondError(ctx, err)
			return
		}
	}

	if h.cache != nil {
		h.cache.Invalidate(stdCtx)
	}
	h.respondSuccess(ctx, http.StatusOK, req)
}
