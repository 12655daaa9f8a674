package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

// ParsedSuggestion 从模型输出解析出的一条建议
type ParsedSuggestion struct {
	Title       string
	Description string
	Confidence  entity.Confidence
	Payload     entity.SuggestionPayload
}

type rawSuggestion struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Confidence  json.RawMessage `json:"confidence"`
	Payload     json.RawMessage `json:"payload"`
}

const suggestionsKey = "suggestions"

// ParseSuggestions 解析模型输出。
// 支持 {"suggestions":[...]}、裸数组或单个建议对象；单条无效时跳过并计入 invalid，
// 输出无法解码或全部无效时返回 ParsingError。
func ParseSuggestions(t entity.SuggestionType, text string) (parsed []ParsedSuggestion, invalid int, err error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, 0, apperrors.Parsing(nil, "empty model output for %s", t)
	}

	var items []json.RawMessage
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, 0, apperrors.Parsing(err, "decode %s suggestions array", t)
		}
	} else {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, 0, apperrors.Parsing(err, "decode %s suggestions object", t)
		}
		list, ok := fields[suggestionsKey]
		if !ok {
			// 未包 suggestions 的对象按单条建议处理，不符合载荷结构时整体失败
			list = json.RawMessage("[" + raw + "]")
		}
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, 0, apperrors.Parsing(err, "decode %s suggestions list", t)
		}
	}

	var firstErr error
	for _, item := range items {
		p, err := parseItem(t, item)
		if err != nil {
			invalid++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		parsed = append(parsed, p)
	}
	if len(parsed) == 0 && invalid > 0 {
		return nil, invalid, apperrors.Parsing(firstErr, "no valid %s suggestion in model output", t)
	}
	return parsed, invalid, nil
}

func parseItem(t entity.SuggestionType, item json.RawMessage) (ParsedSuggestion, error) {
	var rs rawSuggestion
	if err := json.Unmarshal(item, &rs); err != nil {
		return ParsedSuggestion{}, err
	}

	// 模型有时省略 payload 包装，直接把字段平铺在条目上
	payloadRaw := rs.Payload
	if len(payloadRaw) == 0 || string(payloadRaw) == "null" {
		payloadRaw = item
	}
	payload, err := entity.DecodePayload(t, payloadRaw)
	if err != nil {
		return ParsedSuggestion{}, err
	}
	if err := payload.Validate(); err != nil {
		return ParsedSuggestion{}, err
	}

	conf, err := parseConfidence(rs.Confidence)
	if err != nil {
		return ParsedSuggestion{}, err
	}

	title := strings.TrimSpace(rs.Title)
	if title == "" {
		title = payload.DisplayName()
	}
	return ParsedSuggestion{
		Title:       title,
		Description: strings.TrimSpace(rs.Description),
		Confidence:  conf,
		Payload:     payload,
	}, nil
}

// parseConfidence 接受 low/medium/high 或数值分数；缺省视为 low。
// 数值 (1,100] 视为百分制。
func parseConfidence(raw json.RawMessage) (entity.Confidence, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return entity.ConfidenceLow, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return "", err
		}
		if c, ok := entity.ParseConfidence(str); ok {
			return c, nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			return scoreToConfidence(f)
		}
		return "", fmt.Errorf("unknown confidence %q", str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("invalid confidence %s", s)
	}
	return scoreToConfidence(f)
}

func scoreToConfidence(f float64) (entity.Confidence, error) {
	switch {
	case f < 0 || f > 100:
		return "", fmt.Errorf("confidence score %v out of range", f)
	case f > 1:
		f /= 100
	}
	return entity.ConfidenceFromScore(f), nil
}

// extractJSON 从模型输出中截取第一个 JSON 对象/数组（容忍前后夹杂文本与代码块）
func extractJSON(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return raw
	}

	objStart := strings.Index(raw, "{")
	arrStart := strings.Index(raw, "[")
	start, end := -1, -1
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		start = objStart
		end = strings.LastIndex(raw, "}")
	case arrStart >= 0:
		start = arrStart
		end = strings.LastIndex(raw, "]")
	}
	if start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	// 校验能被完整消费
	dec := json.NewDecoder(strings.NewReader(raw))
	for {
		_, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return raw
			}
			return strings.TrimSpace(s)
		}
	}
}
