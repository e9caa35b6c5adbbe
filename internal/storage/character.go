package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/macro-engine/pkg/actor"
)

func characterKey(id uuid.UUID) string {
	return "character:" + id.String()
}

// Character session operations (Redis-backed)

func (r *RedisStorage) SaveCharacter(ctx context.Context, id uuid.UUID, c *actor.Character) error {
	if c == nil {
		return fmt.Errorf("character cannot be nil")
	}
	c.UpdatedAt = time.Now()

	data, err := json.Marshal(c)
	if err != nil {
		r.logger.Error("Failed to marshal character", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal character: %w", err)
	}

	if err := r.client.Set(ctx, characterKey(id), data, r.sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save character", "uuid", id, "error", err)
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error) {
	data, err := r.client.Get(ctx, characterKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Character not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load character", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	if len(data) == 0 {
		r.logger.Warn("Character not found", "uuid", id)
		return nil, nil
	}

	var c actor.Character
	if err := json.Unmarshal(data, &c); err != nil {
		r.logger.Error("Failed to unmarshal character", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	return &c, nil
}

func (r *RedisStorage) DeleteCharacter(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, characterKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete character", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return nil
}

// Character spec operations (filesystem-backed, returns CharacterSpec only)

func (r *RedisStorage) GetCharacterSpec(ctx context.Context, characterID string) (*actor.CharacterSpec, error) {
	if !validResourceID(characterID) {
		return nil, fmt.Errorf("invalid character id: %q", characterID)
	}
	path := filepath.Join(r.dataDir, "characters", characterID+".json")

	spec, err := actor.LoadCharacterSpec(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("character not found: %s", characterID)
		}
		return nil, err
	}
	return spec, nil
}

func (r *RedisStorage) ListCharacters(ctx context.Context) ([]string, error) {
	return listJSONFiles(filepath.Join(r.dataDir, "characters"))
}

// validResourceID rejects ids that could escape the data directory
func validResourceID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

// listJSONFiles returns the basenames of .json files in dir, without extension
func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	ids := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return ids, nil
}
