package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/mediax/internal/common"
)

// Roles of a chat message.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one earlier turn of a conversation with the assistant.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Chatbot struct {
	s Sender
}

func NewChatbot(s Sender) *Chatbot { return &Chatbot{s: s} }

var errEmptyReply = errors.New("assistant sent an empty reply")

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory"`
}

// Chat sends message together with the turns that preceded it and returns
// the assistant's answer. history must not include message itself.
func (c *Chatbot) Chat(ctx context.Context, message string, history []ChatMessage) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", common.ErrorValidation
	}
	if history == nil {
		history = []ChatMessage{}
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := call(ctx, c.s, http.MethodPost, "/chatbot/chat", chatRequest{Message: message, ConversationHistory: history}, &out); err != nil {
		return "", err
	}
	if out.Response == "" {
		return "", errEmptyReply
	}
	return out.Response, nil
}
