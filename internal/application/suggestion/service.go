// Package suggestion 管理内容建议的存储与生命周期
package suggestion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/repository"
	"campaign-ai-api/internal/domain/service"
	apperrors "campaign-ai-api/pkg/errors"
	"campaign-ai-api/pkg/logger"
	"campaign-ai-api/pkg/metrics"
	"campaign-ai-api/pkg/tracer"
)

// Action 生命周期动作
type Action struct {
	Type entity.SuggestionAction
	// Payload 仅 modify 使用，类型必须与建议一致
	Payload entity.SuggestionPayload
	// ExpectedVersion 非 0 时要求与存储版本一致
	ExpectedVersion int64
}

// Service 建议存储服务
type Service struct {
	repo      repository.SuggestionRepository
	knowledge service.KnowledgeStore
	events    service.SuggestionEventPublisher
	locks     *keyedMutex
	now       func() time.Time
}

// NewService 创建建议服务；events 可为 nil
func NewService(repo repository.SuggestionRepository, knowledge service.KnowledgeStore, events service.SuggestionEventPublisher) *Service {
	return &Service{
		repo:      repo,
		knowledge: knowledge,
		events:    events,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create 保存新建议，初始状态总是 pending
func (s *Service) Create(ctx context.Context, sg *entity.ContentSuggestion) error {
	if sg.ID == "" {
		sg.ID = uuid.NewString()
	}
	now := s.now()
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = now
	}
	sg.UpdatedAt = sg.CreatedAt
	sg.Status = entity.SuggestionStatusPending
	sg.Version = 1
	sg.MaterializedRef = nil

	if err := sg.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, sg)
}

// Get 获取建议
func (s *Service) Get(ctx context.Context, id string) (*entity.ContentSuggestion, error) {
	sg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg == nil {
		return nil, apperrors.NotFound(apperrors.CodeSuggestionNotFound, "suggestion %s not found", id)
	}
	return sg, nil
}

// List 分页查询
func (s *Service) List(ctx context.Context, filter *repository.SuggestionFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.ContentSuggestion], error) {
	return s.repo.List(ctx, filter, pagination)
}

// Find 不分页查询
func (s *Service) Find(ctx context.Context, filter *repository.SuggestionFilter) ([]*entity.ContentSuggestion, error) {
	return s.repo.Find(ctx, filter)
}

// Transition 执行生命周期迁移。同一 id 的迁移互斥；存储层再以版本号做比较交换，
// 失败时存储中的状态保持不变。
func (s *Service) Transition(ctx context.Context, id string, action Action) (*entity.ContentSuggestion, error) {
	ctx, span := tracer.Start(ctx, "suggestion.Transition")
	defer span.End()
	ctx = logger.WithContext(ctx, logger.SuggestionIDKey, id)

	updated, err := s.transition(ctx, id, action)
	status := "success"
	if err != nil {
		status = "failed"
		tracer.Fail(span, err)
	}
	metrics.SuggestionTransitions.WithLabelValues(string(action.Type), status).Inc()
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "suggestion transitioned",
		"action", action.Type,
		"status", updated.Status,
		"version", updated.Version,
	)
	s.publish(ctx, eventKind(action.Type), updated)
	return updated, nil
}

func (s *Service) transition(ctx context.Context, id string, action Action) (*entity.ContentSuggestion, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if action.ExpectedVersion != 0 && action.ExpectedVersion != cur.Version {
		return nil, apperrors.SuggestionState("suggestion %s is at version %d, expected %d", id, cur.Version, action.ExpectedVersion)
	}

	next, err := NextStatus(cur.Status, action.Type)
	if err != nil {
		return nil, err
	}

	updated := cur.Clone()
	switch action.Type {
	case entity.SuggestionActionModify:
		if err := checkPayload(cur.Type, action.Payload); err != nil {
			return nil, err
		}
		updated.Payload = entity.ClonePayload(action.Payload)
	case entity.SuggestionActionAccept:
		// 落地先于状态更新；更新失败后重试 accept 时，知识库按建议 ID 返回同一实体
		ref, err := s.knowledge.Materialize(ctx, service.MaterializeRequest{
			SuggestionID: cur.ID,
			ContextRef:   cur.ContextRef,
			Payload:      cur.Payload,
		})
		if err != nil {
			logger.Error(ctx, "failed to materialize suggestion", err, "type", cur.Type)
			return nil, apperrors.Wrap(err, apperrors.CodeMaterializeFailed,
				"materialize suggestion "+id)
		}
		updated.MaterializedRef = ref
	}

	updated.Status = next
	updated.Version = cur.Version + 1
	updated.UpdatedAt = s.now()

	ok, err := s.repo.UpdateIfVersion(ctx, updated, cur.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.SuggestionState("suggestion %s was changed concurrently", id)
	}
	return updated, nil
}

// Delete 删除建议，与状态无关
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return apperrors.NotFound(apperrors.CodeSuggestionNotFound, "suggestion %s not found", id)
	}
	if _, err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, service.SuggestionEventDeleted, cur)
	return nil
}

func checkPayload(t entity.SuggestionType, p entity.SuggestionPayload) error {
	if p == nil {
		return apperrors.Validation("modify requires a payload")
	}
	if p.SuggestionType() != t {
		return apperrors.Validation("payload type %q does not match suggestion type %q", p.SuggestionType(), t)
	}
	return p.Validate()
}

func eventKind(a entity.SuggestionAction) string {
	switch a {
	case entity.SuggestionActionAccept:
		return service.SuggestionEventAccepted
	case entity.SuggestionActionReject:
		return service.SuggestionEventRejected
	default:
		return service.SuggestionEventModified
	}
}

func (s *Service) publish(ctx context.Context, kind string, sg *entity.ContentSuggestion) {
	if s.events == nil {
		return
	}
	err := s.events.PublishSuggestionEvent(ctx, service.SuggestionEvent{
		Kind:           kind,
		SuggestionID:   sg.ID,
		SuggestionType: sg.Type,
		Status:         sg.Status,
		ContextRef:     sg.ContextRef,
		Version:        sg.Version,
		EntityRef:      sg.MaterializedRef,
		OccurredAt:     s.now(),
	})
	if err != nil {
		logger.Warn(ctx, "failed to publish suggestion event", "kind", kind, "error", err.Error())
	}
}
