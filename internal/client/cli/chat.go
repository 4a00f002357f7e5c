package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/common"
)

// Chat asks the assistant a question. Earlier turns are sent along until
// "chat reset" or the end of the session.
// Usage: chat <message...> | chat reset
func (a *App) Chat(ctx context.Context, args []string) error {
	if len(args) == 1 && args[0] == "reset" {
		a.forgetChat()
		a.printf("Conversation cleared")
		return nil
	}

	msg := strings.Join(args, " ")
	if msg == "" {
		var err error
		if msg, err = getSimpleText(a.reader, "Ask the assistant", a.out); err != nil {
			return err
		}
	}
	if msg == "" {
		return fmt.Errorf("chat: empty message: %w", common.ErrorValidation)
	}

	a.mu.Lock()
	history := slices.Clone(a.chat)
	a.mu.Unlock()

	reply, err := a.assistant.Chat(ctx, msg, history)
	if err != nil {
		return a.backendError(ctx, "chat", err)
	}

	a.mu.Lock()
	a.chat = append(a.chat,
		api.ChatMessage{Role: api.ChatRoleUser, Content: msg},
		api.ChatMessage{Role: api.ChatRoleAssistant, Content: reply},
	)
	a.mu.Unlock()

	a.printf("assistant: %s", reply)
	return nil
}

func (a *App) forgetChat() {
	a.mu.Lock()
	a.chat = nil
	a.mu.Unlock()
}
