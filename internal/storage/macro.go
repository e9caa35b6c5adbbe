package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// Macro operations (filesystem-backed)

func (r *RedisStorage) GetMacro(ctx context.Context, macroID string) (*macro.Macro, error) {
	if !validResourceID(macroID) {
		return nil, fmt.Errorf("invalid macro id: %q", macroID)
	}
	path := filepath.Join(r.dataDir, "macros", macroID+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("macro not found: %s", macroID)
		}
		return nil, fmt.Errorf("failed to read macro file %s: %w", path, err)
	}

	m, err := macro.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse macro %s: %w", path, err)
	}
	return m, nil
}

func (r *RedisStorage) ListMacros(ctx context.Context) ([]string, error) {
	return listJSONFiles(filepath.Join(r.dataDir, "macros"))
}
