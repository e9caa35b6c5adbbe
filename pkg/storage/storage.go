package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// Storage defines a unified interface for all storage operations
// This interface combines character sessions (Redis) with resource loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Character session operations (Redis-backed)
	SaveCharacter(ctx context.Context, id uuid.UUID, c *actor.Character) error
	LoadCharacter(ctx context.Context, id uuid.UUID) (*actor.Character, error)
	DeleteCharacter(ctx context.Context, id uuid.UUID) error

	// Character spec operations (filesystem-backed, returns CharacterSpec not Character)
	// Use actor.NewCharacterFromSpec to build the session from the returned spec
	GetCharacterSpec(ctx context.Context, characterID string) (*actor.CharacterSpec, error)
	ListCharacters(ctx context.Context) ([]string, error)

	// Macro operations (filesystem-backed)
	GetMacro(ctx context.Context, macroID string) (*macro.Macro, error)
	ListMacros(ctx context.Context) ([]string, error)
}
