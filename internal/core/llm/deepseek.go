package llm

const deepSeekBaseURL = "https://api.deepseek.com/v1"

type DeepSeekProvider struct {
	chatClient
}

// NewDeepSeekProvider talks to DeepSeek through its OpenAI-compatible API.
func NewDeepSeekProvider(cfg *ProviderConfig) *DeepSeekProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deepSeekBaseURL
	}
	return &DeepSeekProvider{chatClient: newChatClient(cfg.DeepSeekKey, baseURL, cfg)}
}

func (p *DeepSeekProvider) GetProviderName() string {
	return "DeepSeek"
}
