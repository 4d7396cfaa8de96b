package logic

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blues/ess/internal/config"
	"github.com/blues/ess/internal/custody"
	"github.com/blues/ess/internal/errs"
	"github.com/blues/ess/internal/financial"
	"github.com/blues/ess/internal/logger"
	"github.com/blues/ess/internal/model"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 借款到期期限
const loanTerm = 30 * 24 * time.Hour

// LedgerClient 结算账本协作方
type LedgerClient interface {
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
	Transfer(ctx context.Context, key *ecdsa.PrivateKey, to string, amount decimal.Decimal) (string, error)
}

// ReconcilerLogic 结算对账逻辑。项目状态、提款引用与借款结清字段的唯一写入方。
type ReconcilerLogic struct {
	db          *gorm.DB
	custody     *custody.Custody
	ledger      LedgerClient
	locks       *ProjectLocks
	concurrency int
	checkDelay  time.Duration
}

// NewReconcilerLogic 创建结算对账逻辑
func NewReconcilerLogic(db *gorm.DB, cust *custody.Custody, ledger LedgerClient, locks *ProjectLocks, cfg config.TaskConfig) *ReconcilerLogic {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &ReconcilerLogic{
		db:          db,
		custody:     cust,
		ledger:      ledger,
		locks:       locks,
		concurrency: concurrency,
		checkDelay:  time.Duration(cfg.CheckDelay) * time.Millisecond,
	}
}

// WithdrawResult 提款结果
type WithdrawResult struct {
	TxRef          string          `json:"tx_ref"`
	Amount         decimal.Decimal `json:"amount"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
	DueDate        time.Time       `json:"due_date"`
}

// Withdraw 项目达标后一次性提款给创建者，同时开立借款。
// 重复调用返回已记录的交易引用，不会重复打款。
func (r *ReconcilerLogic) Withdraw(ctx context.Context, projectId int64, requester string) (*WithdrawResult, error) {
	if requester == "" {
		return nil, errs.Validation("缺少创建者地址")
	}

	unlock := r.locks.Lock(projectId)
	defer unlock()

	var project model.ProjectModel
	if err := r.db.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("项目不存在")
		}
		return nil, fmt.Errorf("获取项目失败: %w", err)
	}

	// 仅创建者可提款
	if project.CreatorAddress != requester {
		return nil, errs.Unauthorized("只有项目创建者可以提款")
	}

	// 幂等：已提款直接返回记录的交易引用
	if project.WithdrawalTxRef != "" {
		var loan model.LoanModel
		if err := r.db.Where("project_id = ?", projectId).First(&loan).Error; err != nil {
			return nil, fmt.Errorf("获取借款记录失败: %w", err)
		}
		return &WithdrawResult{
			TxRef:          project.WithdrawalTxRef,
			Amount:         project.WithdrawnAmount,
			InterestRate:   loan.InterestRate,
			TotalRepayment: loan.TotalRepayment,
			DueDate:        loan.DueDate,
		}, nil
	}

	if project.Status != model.ProjectStatusFunded {
		return nil, errs.Precondition("项目状态为%s，不能提款", project.Status)
	}
	if project.CurrentFunding.LessThan(project.GoalAmount) {
		return nil, errs.Precondition("项目未达到募集目标，不能提款")
	}

	// 重新派生托管密钥并校验地址一致，失配时立即中止，绝不签名。
	// 种子只在派生期间驻留内存，触达网络之前就已擦除。
	seed, err := r.custody.MasterSeed()
	if err != nil {
		return nil, err
	}
	derived, err := r.custody.DeriveAddress(seed, project.EscrowPath)
	if err != nil {
		custody.WipeBytes(seed)
		return nil, err
	}
	if derived != project.CustodialAddress {
		custody.WipeBytes(seed)
		logger.Error("Custody integrity failure for project %d: derived %s, stored %s",
			projectId, derived, project.CustodialAddress)
		return nil, errs.CustodyIntegrity("托管地址校验失败，已中止提款")
	}
	key, err := r.custody.DeriveKey(seed, project.EscrowPath)
	custody.WipeBytes(seed)
	if err != nil {
		return nil, err
	}
	defer custody.Wipe(key)

	// 提款金额取托管地址的链上实际余额，向下取整到分，确保转账额不超过持仓。
	// 若上次转账已上链但本地提交失败，这里读到的余额为0，自然拒绝重复打款。
	balance, err := r.ledger.BalanceOf(ctx, project.CustodialAddress)
	if err != nil {
		return nil, err
	}
	payout := financial.Floor2(balance)
	if !payout.IsPositive() {
		return nil, errs.Precondition("托管账户无可提款余额")
	}

	txRef, err := r.ledger.Transfer(ctx, key, requester, payout)
	if err != nil {
		return nil, err
	}

	// 利率以提款时刻的项目利率一次性固定
	interest := financial.Round2(financial.Interest(payout, project.InterestRate))
	total := payout.Add(interest)
	now := time.Now()
	dueDate := now.Add(loanTerm)

	loan := &model.LoanModel{
		ProjectId:       projectId,
		BorrowerAddress: requester,
		Principal:       payout,
		InterestRate:    project.InterestRate,
		InterestAmount:  interest,
		TotalRepayment:  total,
		Status:          model.LoanStatusActive,
		DueDate:         dueDate,
		WithdrawalTxRef: txRef,
	}

	// 状态翻转与借款创建在同一事务内完成
	err = r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ProjectModel{}).
			Where("id = ? AND status = ?", projectId, model.ProjectStatusFunded).
			Updates(map[string]interface{}{
				"status":            model.ProjectStatusBorrowing,
				"withdrawal_tx_ref": txRef,
				"withdrawn_amount":  payout,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errs.Precondition("项目状态已变更，提款记录未写入")
		}
		return tx.Create(loan).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Withdrawal complete for project %d: %s to %s, tx %s",
		projectId, payout.String(), requester, txRef)

	return &WithdrawResult{
		TxRef:          txRef,
		Amount:         payout,
		InterestRate:   project.InterestRate,
		TotalRepayment: total,
		DueDate:        dueDate,
	}, nil
}

// CheckResult 还款巡检结果
type CheckResult struct {
	Repaid           bool            `json:"repaid"`
	ExpectedAmount   decimal.Decimal `json:"expected_amount"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Remaining        decimal.Decimal `json:"remaining"`
	PercentageRepaid decimal.Decimal `json:"percentage_repaid"`
	Overpayment      decimal.Decimal `json:"overpayment"`
	Message          string          `json:"message"`
}

// CheckRepayment 查询托管地址余额并与应还总额比对，足额时结清借款与项目。
// 项目已结清时重复调用返回相同结果，不再改写状态。
func (r *ReconcilerLogic) CheckRepayment(ctx context.Context, projectId int64, source model.CheckerSource) (*CheckResult, error) {
	unlock := r.locks.Lock(projectId)
	defer unlock()

	var project model.ProjectModel
	if err := r.db.First(&project, projectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("项目不存在")
		}
		return nil, fmt.Errorf("获取项目失败: %w", err)
	}

	// 幂等：已结清项目返回记录值，只追加审计不改状态
	if project.Status == model.ProjectStatusRepaid {
		var loan model.LoanModel
		if err := r.db.Where("project_id = ?", projectId).First(&loan).Error; err != nil {
			return nil, fmt.Errorf("获取借款记录失败: %w", err)
		}
		r.appendCheck(projectId, loan.ActualRepaymentAmount, loan.TotalRepayment, true, source,
			"already repaid")
		return &CheckResult{
			Repaid:           true,
			ExpectedAmount:   loan.TotalRepayment,
			CurrentBalance:   loan.ActualRepaymentAmount,
			PercentageRepaid: decimal.NewFromInt(100),
			Overpayment:      loan.ActualRepaymentAmount.Sub(loan.TotalRepayment),
			Message:          "还款已确认",
		}, nil
	}

	if project.Status != model.ProjectStatusBorrowing {
		return nil, errs.Precondition("项目状态为%s，只有borrowing状态可以巡检还款", project.Status)
	}

	var loan model.LoanModel
	if err := r.db.Where("project_id = ? AND status = ?", projectId, model.LoanStatusActive).
		First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("借款记录不存在")
		}
		return nil, fmt.Errorf("获取借款记录失败: %w", err)
	}

	now := time.Now()
	balance, err := r.ledger.BalanceOf(ctx, project.CustodialAddress)
	if err != nil {
		// 查询失败同样落一条审计记录
		r.appendCheck(projectId, decimal.Zero, loan.TotalRepayment, false, source,
			fmt.Sprintf("balance query failed: %v", err))
		r.touchLastCheck(projectId, now)
		return nil, err
	}

	// 比对、审计与应答都使用同一个取整后的余额，避免判定与展示不一致
	observed := financial.Round2(balance)
	fullyRepaid := observed.GreaterThanOrEqual(loan.TotalRepayment)
	r.appendCheck(projectId, observed, loan.TotalRepayment, fullyRepaid, source,
		fmt.Sprintf("balance: %s, expected: %s", observed.String(), loan.TotalRepayment.String()))
	r.touchLastCheck(projectId, now)

	if !fullyRepaid {
		remaining := loan.TotalRepayment.Sub(observed)
		pct := financial.Round2(observed.Div(loan.TotalRepayment).Mul(decimal.NewFromInt(100)))
		return &CheckResult{
			Repaid:           false,
			ExpectedAmount:   loan.TotalRepayment,
			CurrentBalance:   observed,
			Remaining:        remaining,
			PercentageRepaid: pct,
			Message:          fmt.Sprintf("等待还款，剩余%s", remaining.String()),
		}, nil
	}

	// 足额：项目与借款在同一事务内结清
	err = r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.ProjectModel{}).
			Where("id = ? AND status = ?", projectId, model.ProjectStatusBorrowing).
			Updates(map[string]interface{}{
				"status":           model.ProjectStatusRepaid,
				"repayment_amount": observed,
				"repayment_date":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errs.Precondition("项目状态已变更，结清记录未写入")
		}
		return tx.Model(&model.LoanModel{}).
			Where("project_id = ? AND status = ?", projectId, model.LoanStatusActive).
			Updates(map[string]interface{}{
				"status":                  model.LoanStatusRepaid,
				"actual_repayment_amount": observed,
				"actual_repayment_date":   now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Repayment confirmed for project %d: received %s, expected %s",
		projectId, observed.String(), loan.TotalRepayment.String())

	return &CheckResult{
		Repaid:           true,
		ExpectedAmount:   loan.TotalRepayment,
		CurrentBalance:   observed,
		PercentageRepaid: decimal.NewFromInt(100),
		Overpayment:      observed.Sub(loan.TotalRepayment),
		Message:          "还款已确认，项目已结清",
	}, nil
}

// ProjectCheckResult 批量巡检中单个项目的结果
type ProjectCheckResult struct {
	ProjectId int64  `json:"project_id"`
	Title     string `json:"title"`
	Repaid    bool   `json:"repaid"`

	ExpectedAmount   decimal.Decimal `json:"expected_amount"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	Remaining        decimal.Decimal `json:"remaining"`
	PercentageRepaid decimal.Decimal `json:"percentage_repaid"`

	Error string `json:"error,omitempty"`
}

// BatchCheckResult 批量巡检汇总
type BatchCheckResult struct {
	TotalChecked int                  `json:"total_checked"`
	NewlyRepaid  int                  `json:"newly_repaid"`
	StillPending int                  `json:"still_pending"`
	Results      []ProjectCheckResult `json:"results"`
}

// CheckAllPending 巡检所有borrowing状态的项目。
// 单个项目失败不影响其余项目，提交间隔受check_delay限制以避免节点限流。
func (r *ReconcilerLogic) CheckAllPending(ctx context.Context, source model.CheckerSource) (*BatchCheckResult, error) {
	var projects []model.ProjectModel
	if err := r.db.Select("id", "title").
		Where("status = ?", model.ProjectStatusBorrowing).
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("获取待巡检项目失败: %w", err)
	}

	result := &BatchCheckResult{Results: make([]ProjectCheckResult, 0, len(projects))}
	if len(projects) == 0 {
		return result, nil
	}

	pool, err := ants.NewPool(r.concurrency)
	if err != nil {
		return nil, fmt.Errorf("创建巡检协程池失败: %w", err)
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i := range projects {
		project := projects[i]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			item := ProjectCheckResult{ProjectId: project.Id, Title: project.Title}
			check, err := r.CheckRepayment(ctx, project.Id, source)
			if err != nil {
				logger.Error("Repayment check failed for project %d: %v", project.Id, err)
				item.Error = err.Error()
			} else {
				item.Repaid = check.Repaid
				item.ExpectedAmount = check.ExpectedAmount
				item.CurrentBalance = check.CurrentBalance
				item.Remaining = check.Remaining
				item.PercentageRepaid = check.PercentageRepaid
			}

			mu.Lock()
			result.Results = append(result.Results, item)
			if item.Error == "" {
				if item.Repaid {
					result.NewlyRepaid++
				} else {
					result.StillPending++
				}
			}
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("Failed to submit check for project %d: %v", project.Id, submitErr)
		}

		// 项目之间留出间隔
		if r.checkDelay > 0 && i < len(projects)-1 {
			time.Sleep(r.checkDelay)
		}
	}

	wg.Wait()
	result.TotalChecked = len(projects)

	logger.Info("Batch repayment check completed: checked %d, newly repaid %d, still pending %d",
		result.TotalChecked, result.NewlyRepaid, result.StillPending)

	return result, nil
}

// appendCheck 追加审计记录，失败只记日志不阻断主流程
func (r *ReconcilerLogic) appendCheck(projectId int64, observed, expected decimal.Decimal, fullyRepaid bool, source model.CheckerSource, notes string) {
	record := &model.RepaymentCheckModel{
		ProjectId:       projectId,
		ObservedBalance: observed,
		ExpectedAmount:  expected,
		IsFullyRepaid:   fullyRepaid,
		CheckerSource:   source,
		Notes:           notes,
	}
	if err := r.db.Create(record).Error; err != nil {
		logger.Error("Failed to append repayment check for project %d: %v", projectId, err)
	}
}

// touchLastCheck 更新项目的最近巡检时间
func (r *ReconcilerLogic) touchLastCheck(projectId int64, at time.Time) {
	if err := r.db.Model(&model.ProjectModel{}).
		Where("id = ?", projectId).
		Update("last_repayment_check_at", at).Error; err != nil {
		logger.Error("Failed to update last check time for project %d: %v", projectId, err)
	}
}
