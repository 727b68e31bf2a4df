package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"smartfeed-be/pkg/events"
	pktNats "smartfeed-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Synthetic producer: publishes a realistic mix of collaborator events onto
// the NATS bus so the engine can be exercised without any real producers.

const defaultUserID = "a2b94f4c-b674-433b-90be-65a91a37e7a3"

type scenario struct {
	label   string
	payload map[string]interface{}
}

func main() {
	fmt.Println("=== SmartFeed Simulation Producer ===")

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	userID := os.Getenv("SIM_USER_ID")
	if userID == "" {
		userID = defaultUserID
	}

	pub, err := pktNats.NewPublisher(natsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	color.Cyan("Publishing as user %s via %s", userID, natsURL)

	scenarios := []scenario{
		{
			label: "manager mention (critical)",
			payload: map[string]interface{}{
				"source":       "discussion",
				"title":        "Sarah mentioned you in Q3 planning",
				"body":         "@you can you review the growth numbers before standup?",
				"topics":       []string{"planning", "growth"},
				"actors":       []map[string]interface{}{{"name": "Sarah"}},
				"relationship": "manager",
				"action":       "mention",
				"target":       "q3-planning",
			},
		},
		{
			label: "peer kudos (recognition)",
			payload: map[string]interface{}{
				"source":       "recognition",
				"title":        "Ada gave you kudos",
				"topics":       []string{"recognition", "kudos"},
				"actors":       []map[string]interface{}{{"name": "Ada"}},
				"relationship": "peer",
				"action":       "recognition_received",
			},
		},
		{
			label: "second kudos, same thread (blends with the first)",
			payload: map[string]interface{}{
				"source":       "recognition",
				"title":        "Grace gave you kudos",
				"topics":       []string{"recognition", "kudos"},
				"actors":       []map[string]interface{}{{"name": "Grace"}},
				"relationship": "peer",
				"action":       "recognition_received",
			},
		},
		{
			label: "market pulse (ambient)",
			payload: map[string]interface{}{
				"source":       "market",
				"title":        "Competitor X shipped usage-based pricing",
				"topics":       []string{"market", "competitor"},
				"relationship": "system",
				"action":       "system_update",
			},
		},
		{
			label: "system outage (emergency)",
			payload: map[string]interface{}{
				"source":       "system",
				"title":        "Prod API error rate above threshold",
				"topics":       []string{"outage"},
				"relationship": "system",
				"action":       "system_update",
				"emergency":    true,
			},
		},
	}

	ctx := context.Background()
	for _, sc := range scenarios {
		sc.payload["id"] = uuid.NewString()
		sc.payload["user_id"] = userID
		sc.payload["event_at"] = time.Now().Format(time.RFC3339)

		evt := events.BaseEvent{
			Type:       "SIMULATED_EVENT",
			Data:       sc.payload,
			OccurredAt: time.Now(),
		}

		if err := pub.Publish(ctx, evt); err != nil {
			color.Red("FAIL  %s: %v", sc.label, err)
			continue
		}
		color.Green("SENT  %s", sc.label)
		time.Sleep(300 * time.Millisecond)
	}

	color.Cyan("Done. Check GET /api/stream for the ranked result.")
}
