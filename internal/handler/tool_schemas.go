// Package handler wires the call-control webhook, the media bridge, and
// the outbound dispatch loop to the rest of the bridge: selecting the
// agent and bandit arm for a call, answering and starting the carrier
// media stream, and provisioning the Session once the media WebSocket
// connects. Grounded on the teacher's internal/handler route-registration
// shape, rebuilt against the current domain model.
package handler

import "github.com/Gahroot/the-tribunal-sub000/internal/provider"

// toolSchemas returns the provider-facing tool schema for each enabled
// tool name, in the order the names appear in enabled. Unknown
// names are skipped rather than rejected, so an agent row written against
// a future tool set still degrades gracefully.
func toolSchemas(enabled []string) []provider.ToolSchema {
	var schemas []provider.ToolSchema
	for _, name := range enabled {
		switch name {
		case "check_availability":
			schemas = append(schemas, provider.ToolSchema{
				Name:        "check_availability",
				Description: "Check open appointment slots between a start and end date.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"start_date": map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
						"end_date":   map[string]interface{}{"type": "string", "description": "YYYY-MM-DD, defaults to start_date"},
					},
					"required": []string{"start_date"},
				},
			})
		case "book_appointment":
			schemas = append(schemas, provider.ToolSchema{
				Name:        "book_appointment",
				Description: "Book an appointment at a specific date and time for the caller.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"date":             map[string]interface{}{"type": "string", "description": "YYYY-MM-DD"},
						"time":             map[string]interface{}{"type": "string", "description": "HH:MM, 24-hour, in the caller's local timezone"},
						"email":            map[string]interface{}{"type": "string"},
						"name":             map[string]interface{}{"type": "string"},
						"duration_minutes": map[string]interface{}{"type": "integer"},
						"notes":            map[string]interface{}{"type": "string"},
					},
					"required": []string{"date", "time", "email"},
				},
			})
		case "send_dtmf":
			schemas = append(schemas, provider.ToolSchema{
				Name:        "send_dtmf",
				Description: "Send DTMF tones to navigate an IVR menu.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"digits": map[string]interface{}{"type": "string", "description": "digits 0-9, *, #, A-D, or w for a pause"},
					},
					"required": []string{"digits"},
				},
			})
		}
	}
	return schemas
}
