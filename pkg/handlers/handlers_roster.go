package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
	"github.com/arnavshah/assignment-engine-go/pkg/scheduler"
)

// ImportParticipants upserts the roster of a congregation
func (h *Handler) ImportParticipants(c *gin.Context) {
	var req struct {
		UnitID       string               `json:"unit_id" binding:"required"`
		Participants []models.Participant `json:"participants" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.UpsertParticipants(c.Request.Context(), req.UnitID, req.Participants); err != nil {
		h.writeError(c, err)
		return
	}
	h.Logger.Info("participants imported", "unit_id", req.UnitID, "count", len(req.Participants), "by", c.GetString("username"))
	c.JSON(http.StatusOK, gin.H{"message": "Participants imported", "count": len(req.Participants)})
}

// ImportRelationships replaces the family links of a congregation
func (h *Handler) ImportRelationships(c *gin.Context) {
	var req struct {
		UnitID        string                      `json:"unit_id" binding:"required"`
		Relationships []models.FamilyRelationship `json:"relationships" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, r := range req.Relationships {
		if !r.Kind.Valid() || r.A == r.B {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid relationship " + r.A + "-" + r.B})
			return
		}
	}

	if err := h.Store.ReplaceRelationships(c.Request.Context(), req.UnitID, req.Relationships); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Relationships replaced", "count": len(req.Relationships)})
}

// ImportProgram stores a weekly program and its parts
func (h *Handler) ImportProgram(c *gin.Context) {
	var program models.Program
	if err := c.ShouldBindJSON(&program); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := scheduler.ValidateProgram(program); err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.Store.UpsertProgram(c.Request.Context(), program); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Program stored", "program_id": program.ID, "parts": len(program.Parts)})
}
