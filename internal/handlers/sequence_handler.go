package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/finops-api/internal/middleware"
	"github.com/sjperalta/finops-api/internal/services"
)

type SequenceHandler struct {
	sequenceService *services.SequenceService
}

func NewSequenceHandler(sequenceService *services.SequenceService) *SequenceHandler {
	return &SequenceHandler{sequenceService: sequenceService}
}

// @Summary Get Sequence
// @Description Current value of a transaction code counter
// @Tags Sequences
// @Produce json
// @Param key path string true "Counter key, e.g. 1_T_0124"
// @Success 200 {object} models.SequenceCounter
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /sequences/{key} [get]
func (h *SequenceHandler) Show(c *gin.Context) {
	counter, err := h.sequenceService.Get(c.Request.Context(), c.Param("key"), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sequence": counter})
}

// @Summary Reset Sequence
// @Description Resets a transaction code counter so the next code is _001
// @Tags Sequences
// @Produce json
// @Param key path string true "Counter key, e.g. 1_T_0124"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /sequences/{key}/reset [post]
func (h *SequenceHandler) Reset(c *gin.Context) {
	if err := h.sequenceService.Reset(c.Request.Context(), c.Param("key"), middleware.GetActor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Secuencia reiniciada"})
}
