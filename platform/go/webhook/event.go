package webhook

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Event names carried in the envelope.
const (
	EventNewLead = "new_lead"
	EventTest    = "test_webhook"
)

const schemaURL = "memory://schemas/webhook-event.json"

//go:embed event.schema.json
var eventSchemaJSON []byte

// Event is the JSON envelope POSTed to tenant webhooks.
type Event struct {
	Event  string        `json:"event"`
	Lead   LeadPayload   `json:"lead"`
	Client ClientPayload `json:"client"`
}

// LeadPayload describes the captured lead. Name and phone are null when not collected.
type LeadPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientPayload identifies the tenant that owns the lead.
type ClientPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TestEvent returns the placeholder envelope sent by a webhook test.
func TestEvent(clientID, username string, now time.Time) Event {
	name := "Test User"
	phone := "+1-555-0123"
	return Event{
		Event: EventTest,
		Lead: LeadPayload{
			ID:        "test-lead-id",
			Email:     "test@example.com",
			Name:      &name,
			Phone:     &phone,
			CreatedAt: now.UTC(),
		},
		Client: ClientPayload{ID: clientID, Username: username},
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func eventSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(eventSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("register event schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile event schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// Marshal encodes the event and validates it against the published envelope schema.
func (e Event) Marshal() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	schema, err := eventSchema()
	if err != nil {
		return nil, err
	}

	var document any
	if err := json.Unmarshal(payload, &document); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if err := schema.Validate(document); err != nil {
		return nil, fmt.Errorf("event schema validation: %w", err)
	}

	return payload, nil
}
