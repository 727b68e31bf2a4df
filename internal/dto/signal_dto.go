package dto

import "smartfeed-be/internal/model"

type InteractionRequest struct {
	ItemID  string `json:"item_id" validate:"required"`
	Source  string `json:"source" validate:"required"`
	Topic   string `json:"topic"`
	ActorID string `json:"actor_id"`
	Action  string `json:"action" validate:"required,oneof=expand read ignore dismiss save click_through"`
}

// ActivityRequest is the passive ambient-signal beacon posted by the client.
// Keystroke counts arrive as a batch count; the server spreads them over the
// beacon interval so the typing classifier sees individual samples.
type ActivityRequest struct {
	Keystrokes  int      `json:"keystrokes" validate:"min=0"`
	Pointer     bool     `json:"pointer"`
	Click       bool     `json:"click"`
	Scroll      bool     `json:"scroll"`
	WindowTitle string   `json:"window_title"`
	PageTopics  []string `json:"page_topics"`
}

type ActivityResponse struct {
	Activity model.ActivityState `json:"activity"`
}
