package chat

import (
	"context"
	"errors"
)

// FallbackReply is shown when the provider returns an empty completion.
const FallbackReply = "Sorry, I couldn't generate a response."

// UserMessage renders a provider error for a chat user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContentFiltered):
		return "Your request was filtered due to content policy violations."
	case errors.Is(err, ErrRateLimited):
		return "Rate limit exceeded. Please try again later."
	case errors.Is(err, ErrBadRequest):
		return "Invalid request. Please check your input."
	case errors.Is(err, ErrUnauthorized):
		return "Authentication failed. Please check your API key."
	case errors.Is(err, ErrUnavailable):
		return "OpenAI service is temporarily unavailable."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	}
	return "Sorry, I couldn't process that. Please try again."
}
