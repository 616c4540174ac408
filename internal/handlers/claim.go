package handlers

import (
	"net/http"
	"xunwu/internal/services"
	"xunwu/internal/utils"

	"github.com/gin-gonic/gin"
)

type ClaimHandler struct {
	claims *services.ClaimService
}

func NewClaimHandler(claims *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claims: claims}
}

type submitClaimRequest struct {
	Description         string `json:"description" binding:"required"`
	VerificationAnswers string `json:"verification_answers"`
}

func (h *ClaimHandler) Submit(c *gin.Context) {
	user := currentUser(c)
	itemID := utils.StringToUint(c.Param("id"))

	var req submitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请描述物品特征以便核实"})
		return
	}

	claim, err := h.claims.Submit(itemID, user.ID, req.Description, req.VerificationAnswers)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

func (h *ClaimHandler) Approve(c *gin.Context) {
	user := currentUser(c)
	itemID := utils.StringToUint(c.Param("id"))
	claimID := utils.StringToUint(c.Param("claimId"))

	claim, err := h.claims.Approve(itemID, claimID, user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

func (h *ClaimHandler) Reject(c *gin.Context) {
	user := currentUser(c)
	itemID := utils.StringToUint(c.Param("id"))
	claimID := utils.StringToUint(c.Param("claimId"))

	claim, err := h.claims.Reject(itemID, claimID, user.ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}
