package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/blues/ess/internal/errs"
	"github.com/blues/ess/internal/logic"
	"github.com/blues/ess/internal/model"
	"github.com/gin-gonic/gin"
)

type SettlementHandler struct {
	reconciler *logic.ReconcilerLogic
	checkerKey string
}

func NewSettlementHandler(reconciler *logic.ReconcilerLogic, checkerKey string) *SettlementHandler {
	return &SettlementHandler{reconciler: reconciler, checkerKey: checkerKey}
}

// Withdraw 项目提款
func (h *SettlementHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, errs.Validation("%s", err.Error()))
		return
	}

	result, err := h.reconciler.Withdraw(c.Request.Context(), req.ProjectId, req.CreatorAddress)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{
		"message": "提款成功",
		"result":  result,
	})
}

// CheckRepayment 单项目还款巡检
func (h *SettlementHandler) CheckRepayment(c *gin.Context) {
	var req CheckRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, errs.Validation("%s", err.Error()))
		return
	}

	source, err := parseCheckerSource(req.Source)
	if err != nil {
		Fail(c, err)
		return
	}

	result, err := h.reconciler.CheckRepayment(c.Request.Context(), req.ProjectId, source)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, result)
}

// CheckAllPending 批量还款巡检，共享密钥精确匹配
func (h *SettlementHandler) CheckAllPending(c *gin.Context) {
	apiKey := c.Query("api_key")
	if h.checkerKey == "" ||
		subtle.ConstantTimeCompare([]byte(apiKey), []byte(h.checkerKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"kind": "unauthorized", "message": "invalid api key"},
		})
		return
	}

	result, err := h.reconciler.CheckAllPending(c.Request.Context(), model.CheckerSourceAPI)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, result)
}

// parseCheckerSource 解析巡检来源，默认manual
func parseCheckerSource(source string) (model.CheckerSource, error) {
	switch model.CheckerSource(source) {
	case model.CheckerSourceManual, model.CheckerSourceAutomated, model.CheckerSourceAPI:
		return model.CheckerSource(source), nil
	case "":
		return model.CheckerSourceManual, nil
	default:
		return "", errs.Validation("无效的巡检来源: %s", source)
	}
}
