package suggestion

import (
	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

// transitions 状态迁移表：from -> action -> to
var transitions = map[entity.SuggestionStatus]map[entity.SuggestionAction]entity.SuggestionStatus{
	entity.SuggestionStatusPending: {
		entity.SuggestionActionAccept: entity.SuggestionStatusAccepted,
		entity.SuggestionActionReject: entity.SuggestionStatusRejected,
		entity.SuggestionActionModify: entity.SuggestionStatusModified,
	},
	entity.SuggestionStatusModified: {
		entity.SuggestionActionAccept: entity.SuggestionStatusAccepted,
		entity.SuggestionActionReject: entity.SuggestionStatusRejected,
	},
}

// NextStatus 返回迁移后的状态；非法迁移返回 SuggestionStateError
func NextStatus(from entity.SuggestionStatus, action entity.SuggestionAction) (entity.SuggestionStatus, error) {
	switch action {
	case entity.SuggestionActionAccept, entity.SuggestionActionReject, entity.SuggestionActionModify:
	default:
		return "", apperrors.Validation("unknown action %q", action)
	}
	to, ok := transitions[from][action]
	if !ok {
		return "", apperrors.SuggestionState("cannot %s a suggestion in status %s", action, from)
	}
	return to, nil
}
