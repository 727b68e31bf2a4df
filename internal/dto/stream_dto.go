package dto

import (
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/pkg/engine/digest"
	"smartfeed-be/pkg/engine/timing"
)

// TierBuckets groups the ranked stream by priority tier for clients that
// render the three bands separately. Order inside each bucket follows the
// overall ranking.
type TierBuckets struct {
	Critical []model.BlendedItem `json:"critical"`
	Elevated []model.BlendedItem `json:"elevated"`
	Ambient  []model.BlendedItem `json:"ambient"`
}

type StreamResponse struct {
	Items       []model.BlendedItem `json:"items"`
	Buckets     TierBuckets         `json:"buckets"`
	UnreadCount int                 `json:"unread_count"`
	GeneratedAt time.Time           `json:"generated_at"`
}

type DigestResponse struct {
	Digest digest.Digest `json:"digest"`
}

type WindowStatusResponse struct {
	Status    digest.WindowStatus `json:"status"`
	Scheduled bool                `json:"scheduled"`
}

type DecisionResponse struct {
	ItemID   string          `json:"item_id"`
	Decision timing.Decision `json:"decision"`
}

type FocusRequest struct {
	Minutes int `json:"minutes" validate:"required,min=1,max=480"`
}

// DebugEventRequest mirrors the producer payload contract so a developer can
// inject synthetic events without a running producer.
type DebugEventRequest struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}
