package provider

import (
	"fmt"
	"strings"
)

// CannedResponse produces a deterministic local answer from simple
// keyword rules on the last user message. It is served, clearly labeled
// as degraded, when every real backend has failed; it is never empty.
func CannedResponse(messages []Message) string {
	var userMessage string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			userMessage = messages[i].Content
			break
		}
	}
	lower := strings.ToLower(userMessage)

	switch {
	case containsAny(lower, "hello", "hi", "hey"):
		return "Hello! I'm StudyMate, your AI learning assistant. I can help you with questions, analyze documents, and support your studies. How can I assist you today?"
	case containsAny(lower, "who", "what are you"):
		return "I'm StudyMate, an AI-powered learning assistant that can answer questions about your uploaded documents and support your studies across several AI backends."
	case strings.TrimSpace(userMessage) == "":
		return "I'm having trouble connecting to my AI backends right now, but I'm here to help. What would you like to know?"
	default:
		return fmt.Sprintf("I understand you're asking about %q. I'm having trouble connecting to my AI backends right now, but I'm here to help. Could you try rephrasing your question?", userMessage)
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
