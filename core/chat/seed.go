package chat

import (
	"context"
	"errors"
	"time"
)

// Seed installs the scripted conversation flows when they are not present
// yet. Existing flows are left untouched so operator edits survive restarts.
// The chatbot configuration needs no seeding: ConfigStore falls back to
// DefaultConfig when none has been stored.
func Seed(ctx context.Context, flows FlowStore) error {
	for _, f := range DefaultFlows() {
		_, err := flows.GetFlow(ctx, f.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrFlowNotFound) {
			return err
		}
		if err := flows.SaveFlow(ctx, &f); err != nil {
			return err
		}
	}
	return nil
}

// DefaultFlows returns the scripted flows for the moving-company chatbot.
// Priorities order the flows when several keywords match one message.
func DefaultFlows() []Flow {
	now := time.Now()
	return []Flow{
		{
			Name:            "greeting",
			Description:     "Greeting flow for new visitors",
			Priority:        100,
			Active:          true,
			TriggerIntents:  []string{"greeting", "hello", "hi"},
			TriggerKeywords: []string{"hello", "hi", "hey", "good morning", "good afternoon"},
			Entry:           "greet",
			Steps: map[string]FlowStep{
				"greet": {
					Type:    "message",
					Content: "Hello! Welcome to Elate Moving. I'm here to help you with your moving needs. How can I assist you today?",
					Next:    "wait_for_response",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			Name:            "moving_quote",
			Description:     "Flow for getting moving quotes",
			Priority:        90,
			Active:          true,
			TriggerIntents:  []string{"get_quote", "moving_quote", "estimate"},
			TriggerKeywords: []string{"quote", "estimate", "price", "cost", "moving", "move"},
			Entry:           "ask_location",
			Steps: map[string]FlowStep{
				"ask_location": {
					Type:    "question",
					Content: "Great! I'd be happy to help you get a moving quote. First, where are you moving from and to?",
					Next:    "ask_date",
				},
				"ask_date": {
					Type:    "question",
					Content: "When do you plan to move? (Please provide a date or timeframe)",
					Next:    "ask_size",
				},
				"ask_size": {
					Type:    "question",
					Content: "What size is your move? (e.g., 1-2 bedroom apartment, 3+ bedroom house, office, etc.)",
					Next:    "ask_special_items",
				},
				"ask_special_items": {
					Type:    "question",
					Content: "Do you have any special items that need special handling? (e.g., piano, artwork, antiques)",
					Next:    "provide_quote",
				},
				"provide_quote": {
					Type:    "message",
					Content: "Thank you for the information! I'll have one of our moving specialists contact you within 24 hours with a detailed quote. Is there anything else I can help you with?",
					Next:    "end",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			Name:            "services",
			Description:     "Flow for information about services",
			Priority:        80,
			Active:          true,
			TriggerIntents:  []string{"services", "what_services", "help"},
			TriggerKeywords: []string{"services", "help", "what do you do", "packing", "storage"},
			Entry:           "list_services",
			Steps: map[string]FlowStep{
				"list_services": {
					Type: "message",
					Content: "We offer a comprehensive range of moving services:\n\n" +
						"- Local and Long Distance Moving\n" +
						"- Residential and Commercial Moving\n" +
						"- Packing and Unpacking Services\n" +
						"- Storage Solutions\n" +
						"- Piano and Specialty Item Moving\n" +
						"- International Moving\n\n" +
						"Which service are you interested in?",
					Next: "wait_for_response",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			Name:            "contact",
			Description:     "Flow for contact information",
			Priority:        70,
			Active:          true,
			TriggerIntents:  []string{"contact", "phone", "email"},
			TriggerKeywords: []string{"contact", "phone", "email", "call", "speak to someone"},
			Entry:           "provide_contact",
			Steps: map[string]FlowStep{
				"provide_contact": {
					Type: "message",
					Content: "You can reach us through:\n\n" +
						"Phone: +1-555-123-4567\n" +
						"Email: info@elate-moving.com\n" +
						"Website: www.elate-moving.com\n\n" +
						"Our office hours are Monday-Friday 8AM-6PM. Would you like me to connect you with a moving specialist?",
					Next: "wait_for_response",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			Name:            "pricing",
			Description:     "Flow for pricing information",
			Priority:        60,
			Active:          true,
			TriggerIntents:  []string{"pricing", "cost", "rates"},
			TriggerKeywords: []string{"pricing", "cost", "rates", "how much", "price"},
			Entry:           "explain_pricing",
			Steps: map[string]FlowStep{
				"explain_pricing": {
					Type: "message",
					Content: "Our pricing is based on several factors:\n\n" +
						"- Distance of the move\n" +
						"- Size and weight of items\n" +
						"- Special handling requirements\n" +
						"- Packing services needed\n" +
						"- Storage requirements\n\n" +
						"For an accurate quote, I'd be happy to gather some details about your specific move. Would you like to get a quote?",
					Next: "wait_for_response",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
