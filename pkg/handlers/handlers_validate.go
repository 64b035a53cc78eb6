package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/assignment-engine-go/pkg/models"
	"github.com/arnavshah/assignment-engine-go/pkg/scheduler"
)

type validateRequest struct {
	Program       models.Program              `json:"program"`
	Participants  []models.Participant        `json:"participants"`
	Relationships []models.FamilyRelationship `json:"relationships"`
}

// ValidateInput checks a program, and optionally a roster, without generating
func (h *Handler) ValidateInput(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}
	h.RecordUsage(c, 0, 0)

	var err error
	if len(req.Participants) == 0 {
		err = scheduler.ValidateProgram(req.Program)
	} else {
		err = scheduler.ValidateInput(scheduler.Input{
			Program:       req.Program,
			Roster:        req.Participants,
			Relationships: req.Relationships,
		})
	}

	var verr *scheduler.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusOK, gin.H{"valid": false, "errors": verr.Problems})
		return
	}

	paired := 0
	for _, part := range req.Program.Parts {
		if rule, _ := models.RuleFor(part.Type); rule.NeedsAssistant {
			paired++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"part_count":        len(req.Program.Parts),
			"paired_part_count": paired,
			"participant_count": len(req.Participants),
		},
	})
}
