package bot

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder provides an abstraction for responding to Discord interactions.
// This interface enables testing handlers without a live Discord connection.
type Responder interface {
	// Respond sends a response to an interaction. After Defer, the response
	// replaces the deferred "thinking" message.
	Respond(response *discordgo.InteractionResponse) error

	// Defer acknowledges the interaction so the handler can take longer than
	// Discord's three second limit.
	Defer() error
}

// DiscordResponder implements Responder using a live Discord session.
type DiscordResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu       sync.Mutex
	deferred bool
}

// NewDiscordResponder creates a new DiscordResponder.
func NewDiscordResponder(s *discordgo.Session, i *discordgo.Interaction) *DiscordResponder {
	return &DiscordResponder{
		session:     s,
		interaction: i,
	}
}

// Respond sends a response to the interaction via Discord API.
func (r *DiscordResponder) Respond(response *discordgo.InteractionResponse) error {
	r.mu.Lock()
	deferred := r.deferred
	r.mu.Unlock()

	if !deferred {
		return r.session.InteractionRespond(r.interaction, response)
	}

	edit := &discordgo.WebhookEdit{}
	if data := response.Data; data != nil {
		edit.Content = &data.Content
		edit.Embeds = &data.Embeds
		edit.Components = &data.Components
	}
	_, err := r.session.InteractionResponseEdit(r.interaction, edit)
	return err
}

// Defer sends a deferred response. Calling it twice is a no-op.
func (r *DiscordResponder) Defer() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.deferred {
		return nil
	}

	responseType := discordgo.InteractionResponseDeferredChannelMessageWithSource
	if r.interaction.Type == discordgo.InteractionMessageComponent {
		responseType = discordgo.InteractionResponseDeferredMessageUpdate
	}
	if err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: responseType,
	}); err != nil {
		return err
	}
	r.deferred = true
	return nil
}

// MockResponder is a test double for Responder.
type MockResponder struct {
	LastResponse *discordgo.InteractionResponse
	Responses    int
	Deferred     bool
	Err          error
}

// Respond records the response for testing.
func (m *MockResponder) Respond(response *discordgo.InteractionResponse) error {
	m.LastResponse = response
	m.Responses++
	return m.Err
}

// Defer records that the interaction was deferred.
func (m *MockResponder) Defer() error {
	m.Deferred = true
	return m.Err
}
