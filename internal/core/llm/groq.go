package llm

const groqBaseURL = "https://api.groq.com/openai/v1"

type GroqProvider struct {
	chatClient
}

// NewGroqProvider uses Groq's OpenAI-compatible endpoint.
func NewGroqProvider(cfg *ProviderConfig) *GroqProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	return &GroqProvider{chatClient: newChatClient(cfg.GroqKey, baseURL, cfg)}
}

func (p *GroqProvider) GetProviderName() string {
	return "Groq"
}
