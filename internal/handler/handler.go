// Package handler 提供API处理器
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/weixiu/weixiu/internal/constraints"
	"github.com/weixiu/weixiu/pkg/dispatcher"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/logger"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/weixiu/weixiu/pkg/specialization"
)

// WorkerRegistry 维修工登记
type WorkerRegistry interface {
	SaveWorker(ctx context.Context, w *model.Worker) error
}

// HealthCheck 依赖健康检查，返回错误表示不可用
type HealthCheck func(ctx context.Context) error

// Handler API处理器
type Handler struct {
	selector  *dispatcher.Selector
	committer *dispatcher.Committer
	catalog   *specialization.Catalog
	workers   WorkerRegistry
	checks    map[string]HealthCheck
	validate  *validator.Validate
	version   string
	started   time.Time
	capacity  model.CapacityRule
	today     func() model.Date

	maxResults    int
	lookAheadDays int
}

// Options 处理器参数
type Options struct {
	Version       string
	MaxResults    int
	LookAheadDays int
	Capacity      model.CapacityRule // 为空时使用默认上限
	Today         func() model.Date  // 调度时区下的今天，为空时使用本地时区
	HealthChecks  map[string]HealthCheck
}

// New 创建API处理器
func New(selector *dispatcher.Selector, committer *dispatcher.Committer, workers WorkerRegistry, opts Options) *Handler {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.Category(fl.Field().String()).Valid()
	})

	if opts.MaxResults <= 0 {
		opts.MaxResults = dispatcher.DefaultMaxResults
	}
	if opts.LookAheadDays <= 0 {
		opts.LookAheadDays = dispatcher.DefaultLookAheadDays
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Today == nil {
		opts.Today = func() model.Date { return model.Today(nil) }
	}
	if opts.Capacity.NormalMax <= 0 {
		opts.Capacity = model.DefaultCapacityRule()
	}

	return &Handler{
		selector:      selector,
		committer:     committer,
		catalog:       selector.Catalog(),
		workers:       workers,
		checks:        opts.HealthChecks,
		validate:      v,
		version:       opts.Version,
		started:       time.Now(),
		capacity:      opts.Capacity,
		today:         opts.Today,
		maxResults:    opts.MaxResults,
		lookAheadDays: opts.LookAheadDays,
	}
}

// CategorizeRequest 工种识别请求
type CategorizeRequest struct {
	Title       string `json:"title" validate:"max=500"`
	Description string `json:"description" validate:"max=5000"`
}

// CategoryResponse 工种
type CategoryResponse struct {
	Category    model.Category `json:"category"`
	DisplayName string         `json:"display_name"`
}

// Categorize 根据报修标题和描述识别工种
func (h *Handler) Categorize(c *gin.Context) {
	var req CategorizeRequest
	if !h.bind(c, &req) {
		return
	}
	if req.Title == "" && req.Description == "" {
		respondError(c, apperrors.InvalidInput("title", "标题和描述不能同时为空"))
		return
	}

	cat := h.catalog.Categorize(req.Title, req.Description)
	respondJSON(c, http.StatusOK, CategoryResponse{Category: cat, DisplayName: h.catalog.DisplayName(cat)})
}

// ParseSpecializationRequest 工种文本解析请求
type ParseSpecializationRequest struct {
	Text string `json:"text" validate:"required,max=100"`
}

// ParseSpecialization 解析管理员录入的工种文本
func (h *Handler) ParseSpecialization(c *gin.Context) {
	var req ParseSpecializationRequest
	if !h.bind(c, &req) {
		return
	}
	cat := h.catalog.Parse(req.Text)
	respondJSON(c, http.StatusOK, CategoryResponse{Category: cat, DisplayName: h.catalog.DisplayName(cat)})
}

// Categories 列出所有工种
func (h *Handler) Categories(c *gin.Context) {
	all := model.AllCategories()
	out := make([]CategoryResponse, len(all))
	for i, cat := range all {
		out[i] = CategoryResponse{Category: cat, DisplayName: h.catalog.DisplayName(cat)}
	}
	respondJSON(c, http.StatusOK, out)
}

// Rules 派工规则库
func (h *Handler) Rules(c *gin.Context) {
	respondJSON(c, http.StatusOK, constraints.LibraryResponse{Library: constraints.GetLibrary(h.capacity)})
}

// CandidatesRequest 候选人筛选请求，未指定工种时根据标题和描述识别
type CandidatesRequest struct {
	Title            string     `json:"title" validate:"max=500"`
	Description      string     `json:"description" validate:"max=5000"`
	RequiredCategory string     `json:"required_category" validate:"omitempty,category"`
	TargetDate       model.Date `json:"target_date"`
	Emergency        bool       `json:"emergency"`
	MaxResults       int        `json:"max_results" validate:"gte=0,lte=100"`
	LookAheadDays    int        `json:"look_ahead_days" validate:"gte=0,lte=365"`
}

// Candidates 筛选候选维修工
func (h *Handler) Candidates(c *gin.Context) {
	var req CandidatesRequest
	if !h.bind(c, &req) {
		return
	}
	if req.TargetDate.IsZero() {
		respondError(c, apperrors.InvalidInput("target_date", "不能为空"))
		return
	}
	if req.RequiredCategory == "" && req.Title == "" && req.Description == "" {
		respondError(c, apperrors.InvalidInput("required_category", "需要工种或报修描述"))
		return
	}

	sreq := dispatcher.SelectRequest{
		RequiredCategory: model.Category(req.RequiredCategory),
		TargetDate:       req.TargetDate,
		Emergency:        req.Emergency,
		MaxResults:       orDefault(req.MaxResults, h.maxResults),
		LookAheadDays:    orDefault(req.LookAheadDays, h.lookAheadDays),
	}

	var (
		sel *dispatcher.Selection
		err error
	)
	if req.RequiredCategory != "" {
		sel, err = h.selector.SelectCandidates(c.Request.Context(), sreq)
	} else {
		sel, err = h.selector.SelectForRequest(c.Request.Context(), req.Title, req.Description, sreq)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	// 空结果仍返回 200，附带原因码方便前端展示
	body := gin.H{"success": true, "data": sel}
	if err := sel.Err(); err != nil {
		body["reason"] = apperrors.GetCode(err)
	}
	c.JSON(http.StatusOK, body)
}

// CommitRequest 派工提交请求
type CommitRequest struct {
	WorkerID         string     `json:"worker_id" validate:"required,uuid"`
	TargetDate       model.Date `json:"target_date"`
	WorkOrderRef     string     `json:"work_order_ref" validate:"required,max=100"`
	RequiredCategory string     `json:"required_category" validate:"required,category"`
	Emergency        bool       `json:"emergency"`
}

// CommitAssignment 提交派工
func (h *Handler) CommitAssignment(c *gin.Context) {
	var req CommitRequest
	if !h.bind(c, &req) {
		return
	}
	if req.TargetDate.IsZero() {
		respondError(c, apperrors.InvalidInput("target_date", "不能为空"))
		return
	}

	res, err := h.committer.Commit(c.Request.Context(), dispatcher.CommitRequest{
		WorkerID:         uuid.MustParse(req.WorkerID),
		TargetDate:       req.TargetDate,
		WorkOrderRef:     req.WorkOrderRef,
		RequiredCategory: model.Category(req.RequiredCategory),
		Emergency:        req.Emergency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, res)
}

// WorkerAvailability 查询维修工可用性
// GET /api/v1/workers/:id/availability?date=2025-01-15&days=14&emergency=true
func (h *Handler) WorkerAvailability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.InvalidInput("id", "不是有效的UUID"))
		return
	}

	date := h.today()
	if s := c.Query("date"); s != "" {
		if date, err = model.ParseDate(s); err != nil {
			respondError(c, apperrors.InvalidInput("date", "格式应为 YYYY-MM-DD"))
			return
		}
	}
	days := h.lookAheadDays
	if s := c.Query("days"); s != "" {
		if days, err = strconv.Atoi(s); err != nil || days <= 0 || days > 365 {
			respondError(c, apperrors.InvalidInput("days", "应为 1-365 的整数"))
			return
		}
	}
	emergency, _ := strconv.ParseBool(c.Query("emergency"))

	summary, err := h.selector.WorkerAvailability(c.Request.Context(), id, date, days, emergency)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, summary)
}

// RegisterWorkerRequest 维修工登记请求，工种文本容忍同义词
type RegisterWorkerRequest struct {
	ID             string `json:"id" validate:"omitempty,uuid"`
	Name           string `json:"name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Specialization string `json:"specialization" validate:"max=100"`
	IsActive       *bool  `json:"is_active"`
}

// RegisterWorker 新增或更新维修工
func (h *Handler) RegisterWorker(c *gin.Context) {
	var req RegisterWorkerRequest
	if !h.bind(c, &req) {
		return
	}

	w := &model.Worker{
		Name:           req.Name,
		Email:          req.Email,
		Specialization: h.catalog.Parse(req.Specialization),
		IsActive:       req.IsActive == nil || *req.IsActive,
	}
	if req.ID != "" {
		w.ID = uuid.MustParse(req.ID)
	}

	if err := h.workers.SaveWorker(c.Request.Context(), w); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, w)
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Version 版本信息
func (h *Handler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": "weixiu", "version": h.version})
}

// bind 解析并校验请求体，失败时已写入响应
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求体格式错误").WithDetails(err.Error()))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			var ve apperrors.ValidationErrors
			for _, fe := range verrs {
				ve.Add(fe.Field(), fe.Tag())
			}
			respondError(c, ve.ToAppError())
			return false
		}
		respondError(c, apperrors.Wrap(err, apperrors.CodeInvalidInput, "请求参数无效"))
		return false
	}
	return true
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// respondJSON 返回JSON响应
func respondJSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError 返回错误响应
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "内部错误")
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error().Err(err).Str("code", string(appErr.Code)).Msg("请求处理失败")
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"error":   true,
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
		"fields":  appErr.Fields,
	})
}
