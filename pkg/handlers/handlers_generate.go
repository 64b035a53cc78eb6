package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/assignment-engine-go/pkg/generator"
	"github.com/arnavshah/assignment-engine-go/pkg/models"
	"github.com/arnavshah/assignment-engine-go/pkg/runlock"
	"github.com/arnavshah/assignment-engine-go/pkg/scheduler"
	"github.com/arnavshah/assignment-engine-go/pkg/store"
)

// GenerateAssignments runs the engine over one program of the caller's congregation
func (h *Handler) GenerateAssignments(c *gin.Context) {
	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UnitID != c.GetString("unitID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "API key does not belong to this unit"})
		return
	}

	summary, err := h.Generator.Generate(c.Request.Context(), req)
	if err != nil {
		h.RecordUsage(c, 0, 0)
		h.writeError(c, err)
		return
	}

	participants := 0
	for _, n := range summary.Stats.ByPrivilege {
		participants += n
	}
	h.RecordUsage(c, summary.TotalParts, participants)

	c.JSON(http.StatusOK, summary)
}

// ListAssignments returns the persisted assignments of a program
func (h *Handler) ListAssignments(c *gin.Context) {
	h.RecordUsage(c, 0, 0)
	ctx := c.Request.Context()

	program, err := h.Store.LoadProgram(ctx, c.Param("id"))
	if err == nil && program.UnitID != c.GetString("unitID") {
		err = store.ErrProgramNotFound
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	list, err := h.Store.Assignments(ctx, program.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	views := make([]models.AssignmentView, 0, len(list))
	for _, a := range list {
		views = append(views, models.NewAssignmentView(a))
	}
	c.JSON(http.StatusOK, gin.H{"program_id": program.ID, "assignments": views})
}

// ApproveAssignment marks an assignment as reviewed so that update runs keep it
func (h *Handler) ApproveAssignment(c *gin.Context) {
	h.RecordUsage(c, 0, 0)

	a, err := h.Store.Approve(c.Request.Context(), c.GetString("unitID"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.NewAssignmentView(a))
}

// writeError maps engine errors to HTTP responses
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *scheduler.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid generation input", "details": verr.Problems})
	case errors.Is(err, generator.ErrUnknownMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrProgramNotFound), errors.Is(err, store.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrUnitMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, runlock.ErrRunInProgress), errors.Is(err, generator.ErrModeRequired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.Logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
