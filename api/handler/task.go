package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/workreport/backend/api/transport"
	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/pkg/httpcontext"
	"github.com/workreport/backend/repository"
	taskUC "github.com/workreport/backend/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	filter := taskFilterFromArgs(ctx.QueryArgs())

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	task, ok := h.parseTask(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, task)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	task, ok := h.parseTask(ctx)
	if !ok {
		return
	}

	if task.ID == "" {
		if id, ok := ctx.UserValue("id").(string); ok {
			task.ID = id
		}
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateTask(stdCtx, task, h.actor(ctx, ""))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteTask(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Change task status
// @Tags tasks
// @Router /api/v1/tasks/{id}/status [post]
func (h *TaskHandler) ChangeStatus(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	var req transport.StatusChangeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Status == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.ChangeStatus(stdCtx, id, domain.Status(req.Status), h.actor(ctx, req.Actor))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Complete task
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.CompleteTask(stdCtx, id, h.actor(ctx, ""))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Reopen task
// @Tags tasks
// @Router /api/v1/tasks/{id}/reopen [post]
func (h *TaskHandler) ReopenTask(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.ReopenTask(stdCtx, id, h.actor(ctx, ""))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Pause SLA timer
// @Tags tasks
// @Router /api/v1/tasks/{id}/timer/pause [post]
func (h *TaskHandler) PauseTimer(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	timer, err := h.uc.PauseTimer(stdCtx, id, h.timerActor(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, timer)
}

// @Summary Resume SLA timer
// @Tags tasks
// @Router /api/v1/tasks/{id}/timer/resume [post]
func (h *TaskHandler) ResumeTimer(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	timer, err := h.uc.ResumeTimer(stdCtx, id, h.timerActor(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, timer)
}

// @Summary Bulk change status
// @Tags tasks
// @Router /api/v1/tasks/bulk/status [post]
func (h *TaskHandler) BulkChangeStatus(ctx *fasthttp.RequestCtx) {
	var req transport.BulkStatusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || len(req.TaskIDs) == 0 || req.Status == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.BulkChangeStatus(stdCtx, req.TaskIDs, domain.Status(req.Status), h.actor(ctx, req.Actor))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// @Summary Task SLA health
// @Tags tasks
// @Router /api/v1/tasks/{id}/sla [get]
func (h *TaskHandler) TaskHealth(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	health, err := h.uc.TaskHealth(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, health)
}

// @Summary Task change history
// @Tags tasks
// @Router /api/v1/tasks/{id}/history [get]
func (h *TaskHandler) TaskHistory(ctx *fasthttp.RequestCtx) {
	id, ok := h.taskID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.uc.TaskHistory(stdCtx, id, parseInt(string(ctx.QueryArgs().Peek("limit")), 50))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, entries)
}

func (h *TaskHandler) parseTask(ctx *fasthttp.RequestCtx) (*domain.Task, bool) {
	var req transport.TaskRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return nil, false
	}

	var due *time.Time
	if req.DueAt != "" {
		if parsed, err := time.Parse(time.RFC3339, req.DueAt); err == nil {
			due = &parsed
		}
	}

	assignee := req.Assignee
	if assignee == "" {
		assignee = string(ctx.Request.Header.Peek("X-User-ID"))
	}

	task := &domain.Task{
		ID:          req.ID,
		ProjectID:   req.ProjectID,
		Assignee:    assignee,
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.Category(req.Category),
		Status:      domain.Status(req.Status),
		Priority:    req.Priority,
		DueAt:       due,
		Metadata:    req.Metadata,
	}
	return task, true
}

func (h *TaskHandler) taskID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing task id", nil))
		return "", false
	}
	return id, true
}

// actor prefers the explicit request field and falls back to the
// authenticated user.
func (h *TaskHandler) actor(ctx *fasthttp.RequestCtx, requested string) string {
	if requested != "" {
		return requested
	}
	return string(ctx.Request.Header.Peek("X-User-ID"))
}

func (h *TaskHandler) timerActor(ctx *fasthttp.RequestCtx) string {
	var req transport.TimerActionRequest
	if body := ctx.PostBody(); len(body) > 0 {
		_ = json.Unmarshal(body, &req)
	}
	return h.actor(ctx, req.Actor)
}

// taskFilterFromArgs builds a repository filter from list query parameters.
func taskFilterFromArgs(args *fasthttp.Args) repository.TaskFilter {
	return repository.TaskFilter{
		ProjectID: string(args.Peek("project_id")),
		Assignee:  string(args.Peek("assignee")),
		Status:    domain.Status(args.Peek("status")),
		Active:    args.GetBool("active"),
		Limit:     parseInt(string(args.Peek("limit")), 50),
		Offset:    parseInt(string(args.Peek("offset")), 0),
	}
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
