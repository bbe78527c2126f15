package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client wraps the OpenAI SDK for interpreting free-form chat messages.
type Client struct {
	apiKey string
	client *openai.Client
	model  openai.ChatModel
}

// ErrClientNotInitialised is returned when attempting to call the API without a configured client.
var ErrClientNotInitialised = errors.New("openai client not initialised")

// Intent represents the high-level action inferred from a user message.
type Intent string

const (
	// IntentUnknown indicates the message intent could not be resolved.
	IntentUnknown Intent = "unknown"
	// IntentAddReminder asks to create a new recurring reminder.
	IntentAddReminder Intent = "add_reminder"
	// IntentListReminders asks for the current reminders.
	IntentListReminders Intent = "list_reminders"
	// IntentDeleteReminder requests deletion of a specific reminder.
	IntentDeleteReminder Intent = "delete_reminder"
	// IntentHelp asks for usage guidance.
	IntentHelp Intent = "help"
)

// Draft is a reminder extracted from natural language.
type Draft struct {
	Text            string `json:"text"`
	TimeWindowStart string `json:"timeWindowStart"`
	TimeWindowEnd   string `json:"timeWindowEnd"`
	Cadence         int    `json:"cadence"`
}

// New returns a client. Without an apiKey every call fails with ErrClientNotInitialised.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		apiKey: apiKey,
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Enabled reports whether an API key was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// ClassifyIntent uses the language model to infer the user's intent.
func (c *Client) ClassifyIntent(ctx context.Context, content string) (Intent, error) {
	if strings.TrimSpace(content) == "" {
		return IntentUnknown, fmt.Errorf("content cannot be empty")
	}
	if !c.Enabled() {
		return IntentUnknown, ErrClientNotInitialised
	}

	label, err := c.complete(ctx, 10*time.Second, 8,
		"Classify the user's request for a recurring reminder bot. Reply with exactly one label: add_reminder, list_reminders, delete_reminder, help, or unknown.",
		content)
	if err != nil {
		return IntentUnknown, err
	}

	switch Intent(strings.ToLower(label)) {
	case IntentAddReminder:
		return IntentAddReminder, nil
	case IntentListReminders:
		return IntentListReminders, nil
	case IntentDeleteReminder:
		return IntentDeleteReminder, nil
	case IntentHelp:
		return IntentHelp, nil
	default:
		return IntentUnknown, nil
	}
}

// ExtractReminder asks the model to turn a free-form request into a reminder draft.
func (c *Client) ExtractReminder(ctx context.Context, content string) (Draft, error) {
	if strings.TrimSpace(content) == "" {
		return Draft{}, fmt.Errorf("content cannot be empty")
	}
	if !c.Enabled() {
		return Draft{}, ErrClientNotInitialised
	}

	reply, err := c.complete(ctx, 15*time.Second, 120,
		`Extract a recurring daily reminder from the user's message. Reply with JSON only: {"text": string, "timeWindowStart": "HH:MM", "timeWindowEnd": "HH:MM", "cadence": minutes}. Use 24-hour times. Default the window to 09:00-17:00 and the cadence to 60 when not stated.`,
		content)
	if err != nil {
		return Draft{}, err
	}
	return ParseDraft(reply)
}

// ParseDraft decodes a model reply, tolerating a surrounding markdown code fence.
func ParseDraft(reply string) (Draft, error) {
	body := strings.TrimSpace(reply)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var draft Draft
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &draft); err != nil {
		return Draft{}, fmt.Errorf("decode reminder draft: %w", err)
	}
	return draft, nil
}

func (c *Client) complete(ctx context.Context, timeout time.Duration, maxTokens int64, system, user string) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(system),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(user),
					},
				},
			},
		},
		Temperature:         openai.Float(0.0),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion received")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
