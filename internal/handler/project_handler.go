package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/ess/internal/errs"
	"github.com/blues/ess/internal/logic"
	"github.com/blues/ess/internal/model"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewProjectHandler(projectLogic *logic.ProjectLogic) *ProjectHandler {
	return &ProjectHandler{projectLogic: projectLogic}
}

// CreateProject 创建项目
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, errs.Validation("%s", err.Error()))
		return
	}

	project := &model.ProjectModel{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		GoalAmount:     req.GoalAmount,
		InterestRate:   req.InterestRate,
		CreatorAddress: req.CreatorAddress,
	}

	if err := h.projectLogic.CreateProject(project); err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusCreated, gin.H{
		"message": "项目创建成功",
		"project": project,
	})
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	status := c.Query("status")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.projectLogic.GetProjects(status, page, pageSize)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{
		"projects":  projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetProject 获取单个项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		Fail(c, errs.Validation("无效的项目ID"))
		return
	}

	project, err := h.projectLogic.GetProject(id)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{"project": project})
}

// Commit 投资承诺
func (h *ProjectHandler) Commit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		Fail(c, errs.Validation("无效的项目ID"))
		return
	}

	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, errs.Validation("%s", err.Error()))
		return
	}

	commitment, err := h.projectLogic.Commit(id, req.InvestorAddress, req.Amount, req.LockupPeriod)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusCreated, gin.H{
		"message":    "投资成功",
		"commitment": commitment,
	})
}

// GetRepaymentStatus 读取还款状态（仅查库）
func (h *ProjectHandler) GetRepaymentStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		Fail(c, errs.Validation("无效的项目ID"))
		return
	}

	status, err := h.projectLogic.GetRepaymentStatus(id)
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, status)
}

// GetPlatformStats 获取平台统计信息
func (h *ProjectHandler) GetPlatformStats(c *gin.Context) {
	stats, err := h.projectLogic.GetPlatformStats()
	if err != nil {
		Fail(c, err)
		return
	}

	Success(c, http.StatusOK, gin.H{"data": stats})
}
