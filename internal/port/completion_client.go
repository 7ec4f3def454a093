package port

import "context"

// CompletionInput carries a caller-supplied prompt for one model call.
type CompletionInput struct {
	Prompt    string
	System    string
	MaxTokens int
}

// CompletionOutput holds the provider's decoded response body, untouched.
// Raw is what the response extractor consumes.
type CompletionOutput struct {
	Raw      interface{}
	Provider string
	Model    string
}

// CompletionClient abstracts a language-model completion call.
type CompletionClient interface {
	Complete(ctx context.Context, input CompletionInput) (*CompletionOutput, error)
}
