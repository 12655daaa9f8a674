// Package analysis 将会话内容编排为多类型的模型调用并产出内容建议
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"campaign-ai-api/internal/application/modelregistry"
	"campaign-ai-api/internal/application/prompt"
	"campaign-ai-api/internal/application/responsecache"
	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/repository"
	"campaign-ai-api/internal/domain/service"
	apperrors "campaign-ai-api/pkg/errors"
	"campaign-ai-api/pkg/logger"
	"campaign-ai-api/pkg/metrics"
	"campaign-ai-api/pkg/tracer"
)

// CustomTemplatePrefix 自定义提示词的模板 ID 前缀
const CustomTemplatePrefix = "custom:"

// TemplateResolver 按建议类型解析模板
type TemplateResolver interface {
	ForType(t entity.SuggestionType) (*entity.PromptTemplate, error)
}

// ModelSelector 按能力选择模型
type ModelSelector interface {
	Select(required []entity.Capability, preferredID string, estimatedTokens int) (*entity.LLMModel, error)
}

// SuggestionSink 建议持久化端口
type SuggestionSink interface {
	Create(ctx context.Context, s *entity.ContentSuggestion) error
	Find(ctx context.Context, filter *repository.SuggestionFilter) ([]*entity.ContentSuggestion, error)
}

// Config 编排器配置，构造时注入
type Config struct {
	DefaultModel      string
	DefaultMaxResults int
	MaxInFlight       int
	CallTimeout       time.Duration
	CacheTTL          time.Duration
}

// Orchestrator 分析编排器
type Orchestrator struct {
	cfg       Config
	content   service.ContentSource
	templates TemplateResolver
	models    ModelSelector
	cache     responsecache.Cache
	provider  service.ModelProvider
	store     SuggestionSink
	usage     service.LLMUsageRecorder

	flight singleflight.Group
	now    func() time.Time
}

// NewOrchestrator 创建编排器；cache 为 nil 时禁用缓存，usage 可为 nil
func NewOrchestrator(
	cfg Config,
	content service.ContentSource,
	templates TemplateResolver,
	models ModelSelector,
	cache responsecache.Cache,
	provider service.ModelProvider,
	store SuggestionSink,
	usage service.LLMUsageRecorder,
) *Orchestrator {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = 10
	}
	if cache == nil {
		cache = responsecache.NewDisabled()
	}
	return &Orchestrator{
		cfg:       cfg,
		content:   content,
		templates: templates,
		models:    models,
		cache:     cache,
		provider:  provider,
		store:     store,
		usage:     usage,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// typeRun 单个类型的执行结果
type typeRun struct {
	outcome     *entity.TypeOutcome
	suggestions []*entity.ContentSuggestion
	err         error
}

// Analyze 对一段内容执行多类型分析。
// 各类型相互隔离；全部失败时返回错误。调用方取消时返回已完成类型的部分结果。
func (o *Orchestrator) Analyze(ctx context.Context, req *entity.AnalysisRequest) (*entity.AnalysisResult, error) {
	if req == nil {
		return nil, apperrors.Validation("analysis request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Options.CustomPrompt != "" {
		if err := checkCustomPrompt(req.Options.CustomPrompt); err != nil {
			return nil, err
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	start := time.Now()
	resultID := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.AnalysisIDKey, resultID)
	if req.ContextRef.ID != "" {
		ctx = logger.WithContext(ctx, logger.ContextIDKey, req.ContextRef.ID)
	}
	ctx, span := tracer.Start(ctx, "analysis.Analyze")
	defer span.End()

	text, err := o.content.FetchText(ctx, req.SourceRef)
	if err != nil {
		tracer.Fail(span, err)
		o.observe("failed", start)
		return nil, err
	}

	existing := o.acceptedTitles(ctx, req)
	maxResults := req.Options.MaxResults
	if maxResults == 0 {
		maxResults = o.cfg.DefaultMaxResults
	}

	logger.Info(ctx, "analysis started",
		"source_id", req.SourceRef.ID,
		"types", len(req.AnalysisTypes),
		"max_results", maxResults,
	)

	runs := make([]typeRun, len(req.AnalysisTypes))
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxInFlight)
	for i, t := range req.AnalysisTypes {
		if ctx.Err() != nil {
			runs[i] = canceledRun()
			continue
		}
		g.Go(func() error {
			runs[i] = o.runType(ctx, resultID, req, t, text, existing[t], maxResults)
			return nil
		})
	}
	_ = g.Wait()

	result := &entity.AnalysisResult{
		ID:          resultID,
		RequestID:   req.ID,
		Suggestions: make([]*entity.ContentSuggestion, 0),
		CreatedAt:   o.now(),
		Metadata: entity.AnalysisMetadata{
			Types: make(map[entity.SuggestionType]*entity.TypeOutcome, len(runs)),
		},
	}
	var (
		succeeded, failed, canceled int
		failures                    []error
		seenModels                  = make(map[string]struct{})
	)
	for i, t := range req.AnalysisTypes {
		run := runs[i]
		result.Metadata.Types[t] = run.outcome
		metrics.AnalysisTypeTotal.WithLabelValues(string(t), string(run.outcome.Status)).Inc()

		switch run.outcome.Status {
		case entity.TypeStatusSucceeded:
			succeeded++
			result.Suggestions = append(result.Suggestions, run.suggestions...)
		case entity.TypeStatusCanceled:
			canceled++
		default:
			failed++
			failures = append(failures, run.err)
			if result.Metadata.Errors == nil {
				result.Metadata.Errors = make(map[entity.SuggestionType]string)
			}
			result.Metadata.Errors[t] = run.outcome.Error
		}

		if m := run.outcome.Model; m != "" {
			if _, ok := seenModels[m]; !ok {
				seenModels[m] = struct{}{}
				result.Metadata.Models = append(result.Metadata.Models, m)
			}
		}
		if run.outcome.CacheHit {
			result.Metadata.CacheHits++
		} else {
			result.Metadata.PromptTokens += run.outcome.PromptTokens
			result.Metadata.CompletionTokens += run.outcome.CompletionTokens
		}
	}
	result.Metadata.Canceled = canceled > 0
	result.Metadata.Partial = succeeded > 0 && (failed > 0 || canceled > 0)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	if failed == len(runs) {
		err := allFailedError(failures)
		tracer.Fail(span, err)
		o.observe("failed", start)
		logger.Error(ctx, "analysis failed for every type", err)
		return nil, err
	}

	status := "success"
	switch {
	case result.Metadata.Canceled:
		status = "canceled"
	case result.Metadata.Partial:
		status = "partial"
	}
	o.observe(status, start)
	logger.Info(ctx, "analysis finished",
		"status", status,
		"suggestions", len(result.Suggestions),
		"cache_hits", result.Metadata.CacheHits,
		"duration_ms", result.ProcessingTimeMs,
	)
	return result, nil
}

func (o *Orchestrator) observe(status string, start time.Time) {
	metrics.AnalysisTotal.WithLabelValues(status).Inc()
	metrics.AnalysisDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// runType 执行单个类型：模板 → 渲染 → 选模型 → 缓存/调用 → 解析 → 过滤 → 持久化
func (o *Orchestrator) runType(
	ctx context.Context,
	analysisID string,
	req *entity.AnalysisRequest,
	t entity.SuggestionType,
	text string,
	accepted map[string]struct{},
	maxResults int,
) typeRun {
	if ctx.Err() != nil {
		return canceledRun()
	}

	ctx, span := tracer.Start(ctx, "analysis.runType")
	defer span.End()

	outcome := &entity.TypeOutcome{}
	fail := func(err error) typeRun {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return typeRun{outcome: &entity.TypeOutcome{
				Status:   entity.TypeStatusCanceled,
				Model:    outcome.Model,
				Template: outcome.Template,
			}}
		}
		tracer.Fail(span, err)
		outcome.Status = entity.TypeStatusFailed
		outcome.ErrorCode = string(apperrors.CodeOf(err))
		outcome.Error = err.Error()
		logger.Warn(ctx, "analysis type failed",
			"type", t,
			"error_code", outcome.ErrorCode,
			"error", err.Error(),
		)
		return typeRun{outcome: outcome, err: err}
	}

	tpl, err := o.resolveTemplate(t, req.Options.CustomPrompt)
	if err != nil {
		return fail(err)
	}
	outcome.Template = tpl.ID

	rendered, err := prompt.Render(tpl, map[string]string{
		prompt.VarContent:          text,
		prompt.VarSourceID:         req.SourceRef.ID,
		prompt.VarSourceType:       req.SourceRef.Type,
		prompt.VarContextID:        req.ContextRef.ID,
		prompt.VarContextType:      req.ContextRef.Type,
		prompt.VarSuggestionType:   string(t),
		prompt.VarMaxResults:       strconv.Itoa(maxResults),
		prompt.VarExistingEntities: formatExisting(accepted),
	})
	if err != nil {
		return fail(err)
	}

	opts := tpl.DefaultOptions
	model, err := o.selectModel(ctx, tpl, req.Options.ModelOverride, rendered, opts)
	if err != nil {
		return fail(err)
	}
	outcome.Model = model.ID
	if model.MaxTokens > 0 && (opts.MaxTokens == 0 || opts.MaxTokens > model.MaxTokens) {
		opts.MaxTokens = model.MaxTokens
	}

	fp := responsecache.Fingerprint(responsecache.FingerprintInput{
		TemplateID:      rendered.TemplateID,
		TemplateVersion: rendered.TemplateVersion,
		SystemPrompt:    rendered.System,
		UserPrompt:      rendered.User,
		ModelID:         model.ID,
		ModelVersion:    model.Version,
		Options:         opts,
	})

	scoped := service.WithUsageScope(ctx, service.UsageScope{
		ContextID:      req.ContextRef.ID,
		AnalysisID:     analysisID,
		SuggestionType: string(t),
	})
	resp, hit, err := o.complete(scoped, fp, service.CompletionRequest{
		Model:        model,
		SystemPrompt: rendered.System,
		UserPrompt:   rendered.User,
		Options:      opts,
	}, func(r *service.CompletionResponse) error {
		_, _, err := ParseSuggestions(t, r.Text)
		return err
	})
	if err != nil {
		return fail(err)
	}
	outcome.CacheHit = hit
	outcome.PromptTokens = resp.Usage.PromptTokens
	outcome.CompletionTokens = resp.Usage.CompletionTokens

	parsed, invalid, err := ParseSuggestions(t, resp.Text)
	if err != nil {
		return fail(err)
	}
	outcome.Parsed = len(parsed)
	outcome.Dropped = invalid

	kept := o.filter(parsed, req.Options, accepted, maxResults)
	outcome.Dropped += len(parsed) - len(kept)

	// 已完成的类型整体落库，不受调用方取消影响
	persistCtx := context.WithoutCancel(ctx)
	suggestions := make([]*entity.ContentSuggestion, 0, len(kept))
	for _, p := range kept {
		sg := &entity.ContentSuggestion{
			Type:        t,
			Title:       p.Title,
			Description: p.Description,
			Confidence:  p.Confidence,
			SourceRef:   req.SourceRef,
			ContextRef:  req.ContextRef,
			Payload:     p.Payload,
			Metadata: map[string]any{
				"analysis_id":      analysisID,
				"model":            model.ID,
				"template":         tpl.ID,
				"template_version": strconv.FormatInt(tpl.Version, 10),
			},
		}
		if err := o.store.Create(persistCtx, sg); err != nil {
			return fail(err)
		}
		metrics.SuggestionsProduced.WithLabelValues(string(t), string(sg.Confidence)).Inc()
		suggestions = append(suggestions, sg)
	}

	outcome.Status = entity.TypeStatusSucceeded
	outcome.Produced = len(suggestions)
	logger.Debug(ctx, "analysis type finished",
		"type", t,
		"model", model.ID,
		"cache_hit", hit,
		"produced", outcome.Produced,
		"dropped", outcome.Dropped,
	)
	return typeRun{outcome: outcome, suggestions: suggestions}
}

// resolveTemplate 自定义提示词替换用户模板文本，保留系统提示、变量与能力要求
func (o *Orchestrator) resolveTemplate(t entity.SuggestionType, custom string) (*entity.PromptTemplate, error) {
	tpl, err := o.templates.ForType(t)
	if err != nil {
		return nil, err
	}
	if custom == "" {
		return tpl, nil
	}
	tpl.ID = CustomTemplatePrefix + string(t)
	tpl.Template = custom
	if err := prompt.CheckDeclared(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// selectModel 优先级：请求指定（严格）→ 模板默认 → 配置默认 → 自动选择
func (o *Orchestrator) selectModel(
	ctx context.Context,
	tpl *entity.PromptTemplate,
	override string,
	rendered *prompt.RenderedPrompt,
	opts entity.GenerationOptions,
) (*entity.LLMModel, error) {
	estimate := modelregistry.EstimateTokens(rendered.System+rendered.User, opts.MaxTokens)
	if override != "" {
		return o.models.Select(tpl.RequiredCapabilities, override, estimate)
	}
	for _, preferred := range []string{tpl.DefaultModel, o.cfg.DefaultModel} {
		if preferred == "" {
			continue
		}
		m, err := o.models.Select(tpl.RequiredCapabilities, preferred, estimate)
		if err == nil {
			return m, nil
		}
		logger.Debug(ctx, "preferred model unusable, falling back",
			"model", preferred,
			"error", err.Error(),
		)
	}
	return o.models.Select(tpl.RequiredCapabilities, "", estimate)
}

// complete 查询缓存，未命中时调用模型；相同指纹的并发调用合并为一次。
// 只有通过 accept 校验的响应才写入缓存，无法解析的输出不会在 TTL 内被重放。
// 合并等待方共享发起方的响应，按命中计，不重复计入 token。
func (o *Orchestrator) complete(
	ctx context.Context,
	fp string,
	req service.CompletionRequest,
	accept func(*service.CompletionResponse) error,
) (*service.CompletionResponse, bool, error) {
	if resp, ok := o.cached(ctx, fp); ok {
		return resp, true, nil
	}

	for attempt := 0; ; attempt++ {
		leader := false
		v, err, shared := o.flight.Do(fp, func() (any, error) {
			leader = true
			if resp, ok := o.cached(ctx, fp); ok {
				return cachedResult{resp: resp}, nil
			}
			resp, err := o.dispatch(ctx, req)
			if err != nil {
				return nil, err
			}
			if accept != nil {
				if err := accept(resp); err != nil {
					logger.Debug(ctx, "model output rejected, not cached", "error", err.Error())
					return cachedResult{resp: resp, dispatched: true}, nil
				}
			}
			if err := o.cache.Put(context.WithoutCancel(ctx), fp, resp, o.cfg.CacheTTL); err != nil {
				logger.Warn(ctx, "failed to store response in cache", "error", err.Error())
			}
			return cachedResult{resp: resp, dispatched: true}, nil
		})
		// 合并调用的发起方被取消时，自身未取消的等待方重新发起
		if err != nil && shared && attempt == 0 && ctx.Err() == nil && errors.Is(err, context.Canceled) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		res := v.(cachedResult)
		return res.resp, !(res.dispatched && leader), nil
	}
}

type cachedResult struct {
	resp       *service.CompletionResponse
	dispatched bool
}

func (o *Orchestrator) cached(ctx context.Context, fp string) (*service.CompletionResponse, bool) {
	resp, ok, err := o.cache.Get(ctx, fp)
	if err != nil {
		logger.Warn(ctx, "response cache lookup failed", "error", err.Error())
		return nil, false
	}
	return resp, ok
}

// dispatch 单次模型调用，带调用级超时
func (o *Orchestrator) dispatch(ctx context.Context, req service.CompletionRequest) (*service.CompletionResponse, error) {
	callCtx := ctx
	if o.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.provider.Complete(callCtx, req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.Provider(err, "model %s call timed out after %s", req.Model.ID, o.cfg.CallTimeout)
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Provider(err, "model %s call failed", req.Model.ID)
	}
	if resp == nil {
		return nil, apperrors.Provider(nil, "model %s returned no response", req.Model.ID)
	}

	o.recordUsage(ctx, req.Model, resp, duration)
	return resp, nil
}

func (o *Orchestrator) recordUsage(ctx context.Context, model *entity.LLMModel, resp *service.CompletionResponse, d time.Duration) {
	if o.usage == nil {
		return
	}
	scope := service.UsageScopeFromContext(ctx)
	err := o.usage.Record(context.WithoutCancel(ctx), service.LLMUsageInput{
		ContextID:        scope.ContextID,
		AnalysisID:       scope.AnalysisID,
		SuggestionType:   scope.SuggestionType,
		Operation:        "analysis",
		Provider:         model.Provider,
		Model:            model.ID,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		DurationMs:       int(d.Milliseconds()),
	})
	if err != nil {
		logger.Warn(ctx, "failed to record llm usage", "error", err.Error())
	}
}

// filter 丢弃低于最低置信度、与已接受建议或本批次重名的条目，再截断到 maxResults
func (o *Orchestrator) filter(parsed []ParsedSuggestion, opts entity.AnalysisOptions, accepted map[string]struct{}, maxResults int) []ParsedSuggestion {
	kept := make([]ParsedSuggestion, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))
	for _, p := range parsed {
		if !p.Confidence.AtLeast(opts.MinConfidence) {
			continue
		}
		key := titleKey(p.Title)
		if !opts.IncludeAccepted {
			if _, dup := accepted[key]; dup {
				continue
			}
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, p)
		if len(kept) == maxResults {
			break
		}
	}
	return kept
}

// acceptedTitles 按类型收集同一上下文中已接受建议的标题
func (o *Orchestrator) acceptedTitles(ctx context.Context, req *entity.AnalysisRequest) map[entity.SuggestionType]map[string]struct{} {
	out := make(map[entity.SuggestionType]map[string]struct{})
	if req.ContextRef.ID == "" {
		return out
	}
	existing, err := o.store.Find(ctx, &repository.SuggestionFilter{
		ContextID:   req.ContextRef.ID,
		ContextType: req.ContextRef.Type,
		Types:       req.AnalysisTypes,
		Statuses:    []entity.SuggestionStatus{entity.SuggestionStatusAccepted},
	})
	if err != nil {
		logger.Warn(ctx, "failed to load accepted suggestions", "error", err.Error())
		return out
	}
	for _, s := range existing {
		if out[s.Type] == nil {
			out[s.Type] = make(map[string]struct{})
		}
		out[s.Type][titleKey(s.Title)] = struct{}{}
		if s.Payload != nil {
			out[s.Type][titleKey(s.Payload.DisplayName())] = struct{}{}
		}
	}
	return out
}

func formatExisting(accepted map[string]struct{}) string {
	if len(accepted) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(accepted))
	for name := range accepted {
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "(none)"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func titleKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func canceledRun() typeRun {
	return typeRun{outcome: &entity.TypeOutcome{Status: entity.TypeStatusCanceled}}
}

// checkCustomPrompt 自定义提示词只能引用标准变量
func checkCustomPrompt(text string) error {
	names, err := prompt.Placeholders(text)
	if err != nil {
		return err
	}
	for _, name := range names {
		if !isStandardVariable(name) {
			return apperrors.Validation("custom prompt uses unknown variable %q", name)
		}
	}
	return nil
}

func isStandardVariable(name string) bool {
	for _, v := range prompt.StandardVariables {
		if v == name {
			return true
		}
	}
	return false
}

// allFailedError 全部失败且错误码一致时原样返回，否则包装为 AnalysisFailed
func allFailedError(failures []error) error {
	if len(failures) == 0 {
		return apperrors.New(apperrors.CodeAnalysisFailed, "analysis failed")
	}
	first := failures[0]
	code := apperrors.CodeOf(first)
	same := code != ""
	msgs := make([]string, 0, len(failures))
	for _, err := range failures {
		if apperrors.CodeOf(err) != code {
			same = false
		}
		msgs = append(msgs, err.Error())
	}
	if same {
		return first
	}
	return apperrors.Wrap(first, apperrors.CodeAnalysisFailed,
		fmt.Sprintf("all %d analysis types failed", len(failures))).
		WithDetail(strings.Join(msgs, "; "))
}
