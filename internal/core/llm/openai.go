package llm

type OpenAIProvider struct {
	chatClient
}

func NewOpenAIProvider(cfg *ProviderConfig) *OpenAIProvider {
	return &OpenAIProvider{chatClient: newChatClient(cfg.OpenAIKey, cfg.BaseURL, cfg)}
}

func (p *OpenAIProvider) GetProviderName() string {
	return "OpenAI"
}
