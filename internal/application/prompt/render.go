// Package prompt 提供提示词模板渲染与模板注册表
package prompt

import (
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"campaign-ai-api/internal/domain/entity"
	apperrors "campaign-ai-api/pkg/errors"
)

var (
	// placeholderPattern 匹配任意 {{...}}，名称合法性单独校验
	placeholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)
	variableName       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
)

// RenderedPrompt 渲染结果
type RenderedPrompt struct {
	TemplateID      string `json:"template_id"`
	TemplateVersion int64  `json:"template_version"`
	System          string `json:"system,omitempty"`
	User            string `json:"user"`
}

// Messages 转换为 eino 消息列表
func (p *RenderedPrompt) Messages() []*schema.Message {
	msgs := make([]*schema.Message, 0, 2)
	if strings.TrimSpace(p.System) != "" {
		msgs = append(msgs, schema.SystemMessage(p.System))
	}
	return append(msgs, schema.UserMessage(p.User))
}

// Placeholders 按出现顺序返回去重后的占位符名称
func Placeholders(text string) ([]string, error) {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if !variableName.MatchString(name) {
			return nil, apperrors.Validation("malformed placeholder %q", m[0])
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// CheckDeclared 校验模板与系统提示中的占位符都已声明
func CheckDeclared(tpl *entity.PromptTemplate) error {
	declared := make(map[string]struct{}, len(tpl.Variables))
	for _, v := range tpl.Variables {
		declared[v] = struct{}{}
	}
	for _, text := range []string{tpl.SystemPrompt, tpl.Template} {
		names, err := Placeholders(text)
		if err != nil {
			return err
		}
		for _, name := range names {
			if _, ok := declared[name]; !ok {
				return apperrors.Validation("template %s uses undeclared variable %q", tpl.ID, name)
			}
		}
	}
	return nil
}

// Render 渲染模板；缺失变量时返回 ValidationError 并指明变量名
func Render(tpl *entity.PromptTemplate, variables map[string]string) (*RenderedPrompt, error) {
	if tpl == nil {
		return nil, apperrors.Validation("template is nil")
	}
	if err := CheckDeclared(tpl); err != nil {
		return nil, err
	}

	system, err := substitute(tpl.SystemPrompt, variables)
	if err != nil {
		return nil, err
	}
	user, err := substitute(tpl.Template, variables)
	if err != nil {
		return nil, err
	}

	return &RenderedPrompt{
		TemplateID:      tpl.ID,
		TemplateVersion: tpl.Version,
		System:          system,
		User:            user,
	}, nil
}

// substitute 单遍替换，替换后的值不会再次展开
func substitute(text string, variables map[string]string) (string, error) {
	names, err := Placeholders(text)
	if err != nil {
		return "", err
	}
	for _, name := range names {
		if _, ok := variables[name]; !ok {
			return "", apperrors.Validation("missing template variable %q", name)
		}
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-2])
		return variables[name]
	}), nil
}
