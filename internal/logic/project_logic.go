package logic

import (
	"errors"
	"fmt"
	"time"

	"github.com/blues/ess/internal/custody"
	"github.com/blues/ess/internal/errs"
	"github.com/blues/ess/internal/financial"
	"github.com/blues/ess/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectLogic 项目业务逻辑
type ProjectLogic struct {
	db      *gorm.DB
	custody *custody.Custody
	locks   *ProjectLocks
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB, cust *custody.Custody, locks *ProjectLocks) *ProjectLogic {
	return &ProjectLogic{db: db, custody: cust, locks: locks}
}

// CreateProject 创建项目并派生专属托管地址
func (p *ProjectLogic) CreateProject(project *model.ProjectModel) error {
	// 验证项目数据
	if err := p.validateProject(project); err != nil {
		return err
	}

	// 为项目派生托管地址，种子用完即清
	seed, err := p.custody.MasterSeed()
	if err != nil {
		return err
	}
	defer custody.WipeBytes(seed)

	path := custody.NewProjectPath()
	address, err := p.custody.DeriveAddress(seed, path)
	if err != nil {
		return err
	}

	// 设置默认值
	project.Status = model.ProjectStatusActive
	project.CurrentFunding = decimal.Zero
	project.PlatformFeePaid = decimal.Zero
	project.EscrowPath = path
	project.CustodialAddress = address

	if err := p.db.Create(project).Error; err != nil {
		return fmt.Errorf("创建项目失败: %w", err)
	}

	return nil
}

// Commit 投资承诺：收取平台手续费，净额计入募集额，达标时翻转为funded
func (p *ProjectLogic) Commit(projectId int64, investor string, amount decimal.Decimal, lockupPeriod string) (*model.CommitmentModel, error) {
	if investor == "" {
		return nil, errs.Validation("缺少投资人地址")
	}
	if !amount.IsPositive() {
		return nil, errs.Validation("投资金额必须大于0")
	}

	// 金额在入口处取整一次，手续费与净额都从取整后的值推导
	amount = financial.Round2(amount)
	fee := financial.Round2(financial.PlatformFee(amount))
	if fee.LessThan(financial.MinFee) {
		return nil, errs.Validation("投资金额过小（最低手续费为%s）", financial.MinFee.String())
	}
	net := amount.Sub(fee)

	now := time.Now()
	var lockupEnd *time.Time
	if lockupPeriod != "" {
		end, err := financial.LockupExpiry(lockupPeriod, now)
		if err != nil {
			return nil, err
		}
		lockupEnd = &end
	}

	unlock := p.locks.Lock(projectId)
	defer unlock()

	var project model.ProjectModel
	if err := p.db.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("项目不存在")
		}
		return nil, fmt.Errorf("获取项目失败: %w", err)
	}

	// 允许超募，但提款后不再接受投资
	if project.Status != model.ProjectStatusActive && project.Status != model.ProjectStatusFunded {
		return nil, errs.Precondition("项目状态为%s，不能投资", project.Status)
	}

	commitment := &model.CommitmentModel{
		ProjectId:       projectId,
		InvestorAddress: investor,
		Amount:          amount,
		PlatformFee:     fee,
		NetAmount:       net,
		LockupPeriod:    lockupPeriod,
		LockupEndAt:     lockupEnd,
		Status:          model.CommitmentStatusActive,
	}

	newFunding := project.CurrentFunding.Add(net)
	newStatus := project.Status
	if newStatus == model.ProjectStatusActive && newFunding.GreaterThanOrEqual(project.GoalAmount) {
		newStatus = model.ProjectStatusFunded
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(commitment).Error; err != nil {
			return err
		}

		// 状态条件更新，并发写入时后到者失败
		res := tx.Model(&model.ProjectModel{}).
			Where("id = ? AND status = ?", projectId, project.Status).
			Updates(map[string]interface{}{
				"current_funding":   newFunding,
				"platform_fee_paid": project.PlatformFeePaid.Add(fee),
				"status":            newStatus,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errs.Precondition("项目状态已变更，请重试")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return commitment, nil
}

// GetProject 获取项目详情
func (p *ProjectLogic) GetProject(id int64) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := p.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("项目不存在")
		}
		return nil, fmt.Errorf("获取项目详情失败: %w", err)
	}
	return &project, nil
}

// GetProjects 获取项目列表
func (p *ProjectLogic) GetProjects(status string, page, pageSize int) ([]model.ProjectModel, int64, error) {
	query := p.db.Model(&model.ProjectModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目总数失败: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var projects []model.ProjectModel
	if err := query.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return projects, total, nil
}

// GetRepaymentStatus 读取还款状态（仅查库，不触达账本）
func (p *ProjectLogic) GetRepaymentStatus(projectId int64) (map[string]interface{}, error) {
	project, err := p.GetProject(projectId)
	if err != nil {
		return nil, err
	}

	var loan model.LoanModel
	var loanData interface{}
	if err := p.db.Where("project_id = ?", projectId).First(&loan).Error; err == nil {
		loanData = loan
	}

	var recentChecks []model.RepaymentCheckModel
	if err := p.db.Where("project_id = ?", projectId).
		Order("id DESC").Limit(5).
		Find(&recentChecks).Error; err != nil {
		return nil, fmt.Errorf("获取巡检记录失败: %w", err)
	}

	return map[string]interface{}{
		"project":       project,
		"loan":          loanData,
		"recent_checks": recentChecks,
	}, nil
}

// GetPlatformStats 获取平台统计信息
func (p *ProjectLogic) GetPlatformStats() (map[string]interface{}, error) {
	var totalProjects int64
	p.db.Model(&model.ProjectModel{}).Count(&totalProjects)

	statusCounts := make(map[string]int64)
	for _, status := range []model.ProjectStatus{
		model.ProjectStatusActive,
		model.ProjectStatusFunded,
		model.ProjectStatusBorrowing,
		model.ProjectStatusRepaid,
		model.ProjectStatusCompleted,
	} {
		var count int64
		p.db.Model(&model.ProjectModel{}).Where("status = ?", status).Count(&count)
		statusCounts[string(status)] = count
	}

	var totalRaised decimal.NullDecimal
	p.db.Model(&model.ProjectModel{}).
		Select("SUM(current_funding)").
		Scan(&totalRaised)

	var totalInvestors int64
	p.db.Model(&model.CommitmentModel{}).
		Distinct("investor_address").
		Count(&totalInvestors)

	raised := decimal.Zero
	if totalRaised.Valid {
		raised = totalRaised.Decimal
	}

	return map[string]interface{}{
		"total_projects":  totalProjects,
		"status_counts":   statusCounts,
		"total_raised":    raised.String(),
		"total_investors": totalInvestors,
	}, nil
}

// validateProject 验证项目数据
func (p *ProjectLogic) validateProject(project *model.ProjectModel) error {
	if project.Title == "" {
		return errs.Validation("项目标题不能为空")
	}
	if !project.GoalAmount.IsPositive() {
		return errs.Validation("目标金额必须大于0")
	}
	if project.InterestRate.IsNegative() || project.InterestRate.GreaterThan(decimal.NewFromInt(100)) {
		return errs.Validation("利率必须在0到100之间")
	}
	if project.CreatorAddress == "" {
		return errs.Validation("缺少创建者地址")
	}
	return nil
}
