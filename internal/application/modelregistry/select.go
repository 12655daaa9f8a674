package modelregistry

import (
	"sort"
	"strings"

	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

// EstimateTokens 粗略估算：每 4 字节 1 个 token（向上取整），再加上预留的输出 token
func EstimateTokens(prompt string, completionBudget int) int {
	n := (len(prompt) + 3) / 4
	if completionBudget > 0 {
		n += completionBudget
	}
	return n
}

// Select 选择满足能力要求的模型。
// preferredID 非空时只接受该模型；否则在候选中选上下文窗口最贴合 estimatedTokens 的模型，
// 都放不下时选窗口最大的，最后按 ID 排序（数字段按数值比较，其余按字典序）。
func (r *Registry) Select(required []entity.Capability, preferredID string, estimatedTokens int) (*entity.LLMModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if preferredID != "" {
		m, ok := r.models[preferredID]
		switch {
		case !ok:
			return nil, apperrors.CapabilityMismatch("preferred model %s is not registered", preferredID)
		case !m.IsAvailable:
			return nil, apperrors.CapabilityMismatch("preferred model %s is not available", preferredID)
		case !m.Supports(required):
			return nil, apperrors.CapabilityMismatch("preferred model %s lacks required capabilities %v", preferredID, required)
		}
		return m.Clone(), nil
	}

	candidates := make([]*entity.LLMModel, 0, len(r.models))
	for _, m := range r.models {
		if m.IsAvailable && m.Supports(required) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, apperrors.CapabilityMismatch("no available model supports %v", required)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ContextWindow != b.ContextWindow {
			return a.ContextWindow < b.ContextWindow
		}
		return lessModelID(a.ID, b.ID)
	})
	for _, m := range candidates {
		if m.ContextWindow >= estimatedTokens {
			return m.Clone(), nil
		}
	}

	// 没有模型能容纳时取最大窗口
	largest := candidates[len(candidates)-1]
	for _, m := range candidates {
		if m.ContextWindow == largest.ContextWindow {
			return m.Clone(), nil
		}
	}
	return largest.Clone(), nil
}

// lessModelID 自然序比较：连续数字按数值比较，model-9 排在 model-10 之前
func lessModelID(a, b string) bool {
	x, y := a, b
	for x != "" && y != "" {
		xd, yd := isDigit(x[0]), isDigit(y[0])
		if xd != yd {
			return x < y
		}
		xr, xrest := splitRun(x, xd)
		yr, yrest := splitRun(y, yd)
		if xd {
			xn, yn := strings.TrimLeft(xr, "0"), strings.TrimLeft(yr, "0")
			if len(xn) != len(yn) {
				return len(xn) < len(yn)
			}
			if xn != yn {
				return xn < yn
			}
		} else if xr != yr {
			return xr < yr
		}
		x, y = xrest, yrest
	}
	if x != y {
		return x == ""
	}
	return a < b
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// splitRun 切出开头连续的数字段或非数字段
func splitRun(s string, digits bool) (run, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}
