package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/services"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	Tasks *services.TaskService
	Users *services.UserService
	Email services.Notifier
	WS    *WSHandler
}

func (h *TaskHandler) notify(t *models.Task, action, userID string) {
	h.WS.Broadcast(Notification{Type: "task", Action: action, ID: t.ID, User: userID})
}

func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	view, err := services.ParseView(c.Query("view"))
	if err != nil {
		respondError(c, err)
		return
	}
	tasks, err := h.Tasks.List(c.Request.Context(), userID, view, services.TaskFilter{
		Status:   models.TaskStatus(c.Query("status")),
		ClientID: c.Query("client_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	t, err := h.Tasks.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, t)
}

func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Tasks.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.notify(t, "created", userID)
	respond(c, http.StatusCreated, t)
}

func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Tasks.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.notify(t, "updated", userID)
	respond(c, http.StatusOK, t)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	t, err := h.Tasks.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.notify(t, "deleted", userID)
	respond(c, http.StatusOK, gin.H{"id": t.ID})
}

func (h *TaskHandler) Share(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.ShareTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	grant, task, err := h.Tasks.Share(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.WS.BroadcastTo(grant.GranteeID, Notification{Type: "task", Action: "shared", ID: task.ID, User: userID})
	go h.emailGrantee(userID, grant.GranteeID, task)
	respond(c, http.StatusCreated, grant)
}

// emailGrantee is best effort; a failed email never fails the share.
func (h *TaskHandler) emailGrantee(sharerID, granteeID string, task *models.Task) {
	if h.Email == nil || h.Users == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	sharer, err := h.Users.Get(ctx, sharerID)
	if err != nil {
		return
	}
	grantee, err := h.Users.Get(ctx, granteeID)
	if err != nil {
		return
	}
	if err := h.Email.SendTaskShared(ctx, grantee.Email, sharer.Name, task.Title, task.ID); err != nil {
		utils.SafeWarn("task share email to %s failed: %v", grantee.Email, err)
	}
}

func (h *TaskHandler) Revoke(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.Tasks.Revoke(c.Request.Context(), userID, c.Param("id"), c.Param("userId")); err != nil {
		respondError(c, err)
		return
	}
	h.WS.BroadcastTo(c.Param("userId"), Notification{Type: "task", Action: "revoked", ID: c.Param("id"), User: userID})
	respond(c, http.StatusOK, gin.H{"revoked": true})
}

func (h *TaskHandler) Grants(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	grants, err := h.Tasks.Grants(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, grants)
}
