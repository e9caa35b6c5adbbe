package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/macro-engine/internal/handlers"
	"github.com/jwebster45206/macro-engine/internal/middleware"
	"github.com/jwebster45206/macro-engine/pkg/actor"
)

// MacroReply is the raw outcome of a macro request
type MacroReply struct {
	Status    int
	RequestID string
	Body      []byte
}

// CreateSession starts a character session from a spec id
func CreateSession(ctx context.Context, client *http.Client, baseURL, characterID string) (*actor.Character, error) {
	body, err := json.Marshal(handlers.CreateCharacterRequest{Character: characterID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/characters", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create session returned %d: %s", resp.StatusCode, string(body))
	}

	var c actor.Character
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode created session: %w", err)
	}
	return &c, nil
}

// GetSession retrieves the current state of a character session
func GetSession(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (*actor.Character, error) {
	url := fmt.Sprintf("%s/v1/characters/%s", baseURL, sessionID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get session returned %d: %s", resp.StatusCode, string(body))
	}

	var c actor.Character
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &c, nil
}

// DeleteSession removes a character session. A missing session is not an error.
func DeleteSession(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) error {
	url := fmt.Sprintf("%s/v1/characters/%s", baseURL, sessionID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create DELETE request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete session returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PostMacro runs a macro against a session. Non-2xx answers are returned
// as a reply, not an error, so callers can assert on rejections.
func PostMacro(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, macroReq handlers.MacroRequest) (*MacroReply, error) {
	body, err := json.Marshal(macroReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal macro request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/characters/%s/macro", baseURL, sessionID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create macro request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send macro request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read macro response: %w", err)
	}

	return &MacroReply{
		Status:    resp.StatusCode,
		RequestID: resp.Header.Get(middleware.RequestIDHeader),
		Body:      respBody,
	}, nil
}
