package dispatcher

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/weixiu/weixiu/pkg/availability"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/weixiu/weixiu/pkg/specialization"
)

// 筛选层级
const (
	TierMatching = 1 // 工种匹配或综合维修
	TierGeneral  = 2 // 仅综合维修
	TierAny      = 3 // 任意在岗维修工
)

// SelectRequest 候选人筛选请求
type SelectRequest struct {
	RequiredCategory model.Category `json:"required_category"`
	TargetDate       model.Date     `json:"target_date"`
	Emergency        bool           `json:"emergency"`
	MaxResults       int            `json:"max_results"`
	LookAheadDays    int            `json:"look_ahead_days"`
}

// Candidate 候选维修工
type Candidate struct {
	Worker                 *model.Worker `json:"worker"`
	Score                  int           `json:"score"`
	Workload               int           `json:"workload"`
	CanSatisfy             bool          `json:"can_satisfy"`
	BookedDates            []model.Date  `json:"booked_dates"`
	PartiallyBookedDates   []model.Date  `json:"partially_booked_dates"`
	NextFullyAvailableDate *model.Date   `json:"next_fully_available_date,omitempty"`
}

// Selection 筛选结果
type Selection struct {
	RequiredCategory model.Category `json:"required_category"`
	TargetDate       model.Date     `json:"target_date"`
	Emergency        bool           `json:"emergency"`
	Tier             int            `json:"tier"`
	Candidates       []Candidate    `json:"candidates"`
}

// Empty 是否没有任何候选人
func (s *Selection) Empty() bool {
	return len(s.Candidates) == 0
}

// Err 没有候选人时返回 NO_CANDIDATES_AVAILABLE
func (s *Selection) Err() error {
	if !s.Empty() {
		return nil
	}
	return apperrors.NoCandidatesAvailable(string(s.RequiredCategory), s.TargetDate.String())
}

// Selector 候选维修工筛选器
type Selector struct {
	store   Store
	calc    *availability.Calculator
	catalog *specialization.Catalog
	opts    options
}

// NewSelector 创建筛选器
func NewSelector(store Store, calc *availability.Calculator, catalog *specialization.Catalog, opts ...Option) *Selector {
	if calc == nil {
		calc = availability.DefaultCalculator()
	}
	if catalog == nil {
		catalog = specialization.DefaultCatalog()
	}
	return &Selector{
		store:   store,
		calc:    calc,
		catalog: catalog,
		opts:    buildOptions(opts),
	}
}

// Catalog 返回工种目录
func (s *Selector) Catalog() *specialization.Catalog {
	return s.catalog
}

// SelectCandidates 按三级回退筛选候选人并排序
// 所有读取在同一快照内完成；结果为空不是错误
func (s *Selector) SelectCandidates(ctx context.Context, req SelectRequest) (*Selection, error) {
	if !req.RequiredCategory.Valid() {
		return nil, apperrors.InvalidInput("required_category", "未知工种")
	}
	if req.TargetDate.IsZero() {
		return nil, apperrors.InvalidInput("target_date", "不能为空")
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.LookAheadDays <= 0 {
		req.LookAheadDays = DefaultLookAheadDays
	}

	start := time.Now()
	today := s.opts.today()
	window := model.NewDateRange(today, req.LookAheadDays)
	scan := window.Union(model.NewDateRange(req.TargetDate, s.calc.SearchHorizonDays()))

	sel := &Selection{
		RequiredCategory: req.RequiredCategory,
		TargetDate:       req.TargetDate,
		Emergency:        req.Emergency,
	}

	err := s.store.View(ctx, func(r Reader) error {
		tier, workers, err := s.findWorkers(ctx, r, req.RequiredCategory)
		if err != nil {
			return err
		}
		sel.Tier = tier

		candidates := make([]Candidate, 0, len(workers))
		for _, w := range workers {
			assignments, err := r.GetActiveAssignments(ctx, w.ID, scan)
			if err != nil {
				return err
			}
			w.Assignments = assignments
			candidates = append(candidates, s.rank(w, req, window))
		}
		sel.Candidates = candidates
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "查询候选维修工失败")
	}

	sortCandidates(sel.Candidates)
	if len(sel.Candidates) > req.MaxResults {
		sel.Candidates = sel.Candidates[:req.MaxResults]
	}

	elapsed := time.Since(start)
	s.opts.observer.ObserveSelection(sel.Tier, len(sel.Candidates), elapsed)
	s.opts.log.With(ctx).CandidatesSelected(string(req.RequiredCategory), req.TargetDate.String(), sel.Tier, len(sel.Candidates), elapsed)

	return sel, nil
}

// SelectForRequest 在调度时根据报修标题和描述重新识别工种后筛选
func (s *Selector) SelectForRequest(ctx context.Context, title, description string, req SelectRequest) (*Selection, error) {
	req.RequiredCategory = s.catalog.Categorize(title, description)
	return s.SelectCandidates(ctx, req)
}

// WorkerAvailability 计算单个维修工在 [target, target+days] 内的可用性摘要
func (s *Selector) WorkerAvailability(ctx context.Context, workerID uuid.UUID, target model.Date, days int, emergency bool) (*model.AvailabilitySummary, error) {
	if days <= 0 {
		days = DefaultLookAheadDays
	}
	window := model.NewDateRange(target, days)
	scan := window.Union(model.NewDateRange(target, s.calc.SearchHorizonDays()))

	var summary model.AvailabilitySummary
	err := s.store.View(ctx, func(r Reader) error {
		w, err := r.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}
		if w == nil {
			return apperrors.WorkerNotFound(workerID.String())
		}
		if w.Assignments, err = r.GetActiveAssignments(ctx, workerID, scan); err != nil {
			return err
		}
		summary = s.calc.Summarize(w, target, window, emergency)
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err, "查询维修工可用性失败")
	}
	return &summary, nil
}

// findWorkers 三级回退：工种匹配或综合维修 -> 仅综合维修 -> 任意在岗
func (s *Selector) findWorkers(ctx context.Context, r Reader, required model.Category) (int, []*model.Worker, error) {
	tiers := []struct {
		tier       int
		categories []model.Category
	}{
		{TierMatching, matchingCategories(required)},
		{TierGeneral, []model.Category{model.CategoryGeneralMaintenance}},
		{TierAny, nil},
	}

	for _, t := range tiers {
		workers, err := r.GetActiveWorkers(ctx, t.categories)
		if err != nil {
			return 0, nil, err
		}
		if len(workers) > 0 {
			return t.tier, workers, nil
		}
	}
	return TierAny, nil, nil
}

// rank 计算单个候选人的评分与占用情况
func (s *Selector) rank(w *model.Worker, req SelectRequest, window model.DateRange) Candidate {
	days := s.calc.DaysUntilAvailable(w, req.TargetDate)
	workload := s.calc.Workload(w, window)

	return Candidate{
		Worker:                 w,
		Score:                  availability.Score(days, workload),
		Workload:               workload,
		CanSatisfy:             s.catalog.CanSatisfy(w.Specialization, req.RequiredCategory),
		BookedDates:            s.calc.BookedDates(w, window.Start, window.End, req.Emergency),
		PartiallyBookedDates:   s.calc.PartiallyBookedDates(w, window.Start, window.End, req.Emergency),
		NextFullyAvailableDate: s.calc.NextFullyAvailableDate(w, req.TargetDate, s.calc.SearchHorizonDays()),
	}
}

func matchingCategories(required model.Category) []model.Category {
	if required == model.CategoryGeneralMaintenance {
		return []model.Category{model.CategoryGeneralMaintenance}
	}
	return []model.Category{required, model.CategoryGeneralMaintenance}
}

// sortCandidates 评分升序，其次工作量、姓名、ID
func sortCandidates(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		if a.Workload != b.Workload {
			return a.Workload < b.Workload
		}
		if a.Worker.Name != b.Worker.Name {
			return a.Worker.Name < b.Worker.Name
		}
		return a.Worker.ID.String() < b.Worker.ID.String()
	})
}

// wrapStoreErr 保留业务错误，其余归为数据库错误
func wrapStoreErr(err error, message string) error {
	if apperrors.GetCode(err) != apperrors.CodeUnknown {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, message)
	}
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, message)
}
