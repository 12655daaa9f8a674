package entity

// GenerationOptions 生成参数，零值表示使用提供方默认
type GenerationOptions struct {
	Temperature      float64 `json:"temperature,omitempty"`
	TopP             float64 `json:"top_p,omitempty"`
	MaxTokens        int     `json:"max_tokens,omitempty"`
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64 `json:"presence_penalty,omitempty"`
}

// PromptTemplate 提示词模板
type PromptTemplate struct {
	ID                   string            `json:"id"`
	Name                 string            `json:"name"`
	Description          string            `json:"description,omitempty"`
	SuggestionType       SuggestionType    `json:"suggestion_type"`
	Template             string            `json:"template"`
	Variables            []string          `json:"variables"`
	SystemPrompt         string            `json:"system_prompt,omitempty"`
	RequiredCapabilities []Capability      `json:"required_capabilities,omitempty"`
	DefaultModel         string            `json:"default_model,omitempty"`
	DefaultOptions       GenerationOptions `json:"default_options"`
	Version              int64             `json:"version"`
}

// Clone 拷贝模板
func (t *PromptTemplate) Clone() *PromptTemplate {
	out := *t
	out.Variables = append([]string(nil), t.Variables...)
	out.RequiredCapabilities = append([]Capability(nil), t.RequiredCapabilities...)
	return &out
}
