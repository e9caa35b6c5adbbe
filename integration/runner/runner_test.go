package runner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/macro-engine/internal/handlers"
	"github.com/jwebster45206/macro-engine/internal/middleware"
	"github.com/jwebster45206/macro-engine/internal/storage"
	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/engine"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

const (
	casesDir = "../cases"
	dataDir  = "../../data"
)

// newTestServer serves the API over the sample data directory
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	mr := miniredis.RunT(t)
	store, err := storage.NewRedisStorage(mr.Addr(), dataDir, time.Hour, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	eng := engine.New(log)
	mux := http.NewServeMux()
	characterHandler := handlers.NewCharacterHandler(log, store, eng)
	mux.Handle("/v1/characters", characterHandler)
	mux.Handle("/v1/characters/", characterHandler)

	srv := httptest.NewServer(middleware.LoggerWith(log)(mux))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunSuite_Cases(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL)
	r.ErrorHandlingMode = ErrorHandlingExit

	files, err := filepath.Glob(filepath.Join(casesDir, "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		jobs, err := LoadTestSuiteWithExpansion(file, casesDir)
		require.NoError(t, err, file)

		for _, job := range jobs {
			t.Run(job.Name, func(t *testing.T) {
				result, err := r.RunSuite(context.Background(), job.Suite)
				require.NoError(t, err)
				assert.Len(t, result.Results, len(job.Suite.Steps))
				for _, step := range result.Results {
					assert.True(t, step.Success, step.StepName)
					if !step.IsReset {
						assert.NotEmpty(t, step.RequestID, step.StepName)
					}
				}
			})
		}
	}
}

func TestRunSuite_ReportsFailedExpectations(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL)

	mp := 99.0
	status := http.StatusConflict
	suite := TestSuite{
		Name:      "wrong expectations",
		Character: "swordsman",
		Steps: []TestStep{
			{
				Name:         "wrong mp",
				Request:      handlers.MacroRequest{AbilityID: "power-strike", Mode: handlers.ModeApply},
				Expectations: Expectations{Resources: map[string]float64{"mp": mp}},
			},
			{
				Name:         "wrong status",
				Request:      handlers.MacroRequest{AbilityID: "riposte", Mode: handlers.ModePreview},
				Expectations: Expectations{Status: &status},
			},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	require.Len(t, result.Results, 2)
	assert.Contains(t, result.Results[0].Error.Error(), "expected resource mp to be 99, got 1")
	assert.Contains(t, result.Results[1].Error.Error(), "expected status 409, got 200")

	r.ErrorHandlingMode = ErrorHandlingExit
	result, err = r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Len(t, result.Results, 1)
}

func TestRunSuite_UnknownCharacter(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL)
	r.CharacterOverride = "nobody"

	_, err := r.RunSuite(context.Background(), TestSuite{Name: "missing", Character: "swordsman"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create session for nobody")
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	jobs, err := LoadTestSuiteWithExpansion("testdata/all.json", casesDir)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "Power Strike spends MP and charges", jobs[0].Name)
	assert.True(t, strings.HasSuffix(jobs[2].CaseFile, "second_wind.json"))

	_, err = LoadTestSuiteWithExpansion("testdata/loop.json", "testdata")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence cycle")

	_, err = LoadTestSuiteWithExpansion("testdata/missing.json", casesDir)
	assert.Error(t, err)
}

func TestCheckState(t *testing.T) {
	maxMP := 6.0
	c, err := actor.NewCharacterFromSpec(&actor.CharacterSpec{
		ID:        "swordsman",
		HP:        10,
		MaxHP:     12,
		Resources: map[string]actor.ResourceSpec{"mp": {Value: 3, Max: &maxMP}},
		Abilities: map[string]actor.AbilitySpec{"slash": {Charges: 1, Macro: macro.NewEmptyMacro()}},
		Buffs:     []actor.ActiveBuff{{BuffID: "guard", Turns: 1}},
	})
	require.NoError(t, err)

	hp := 10
	assert.NoError(t, checkState(Expectations{
		HP:        &hp,
		Resources: map[string]float64{"mp": 3},
		Charges:   map[string]int{"slash": 1},
		Buffs:     map[string]int{"guard": 1, "haste": 0},
	}, c))

	tests := []struct {
		name string
		exp  Expectations
		want string
	}{
		{"missing resource", Expectations{Resources: map[string]float64{"tp": 0}}, "resource tp to exist"},
		{"missing ability", Expectations{Charges: map[string]int{"thrust": 0}}, "ability thrust to exist"},
		{"charges", Expectations{Charges: map[string]int{"slash": 0}}, "0 charges, got 1"},
		{"buffs", Expectations{Buffs: map[string]int{"guard": 2}}, "2 active guard buffs, got 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkState(tt.exp, c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckResponse(t *testing.T) {
	judge := "2d6+4+2"
	warnings := 0
	resp := &handlers.MacroResponse{
		Commands:     handlers.BuiltCommands{Judge: judge, Damage: "1d8"},
		Effects:      engine.CommandEffects{EffectTexts: []string{"Power Strike!"}},
		Warnings:     []string{},
		ExpiredBuffs: []actor.ActiveBuff{{BuffID: "haste"}, {BuffID: "guard"}},
	}

	assert.NoError(t, checkResponse(Expectations{
		JudgeCommand:   &judge,
		EffectsContain: []string{"power strike"},
		Warnings:       &warnings,
		ExpiredBuffs:   []string{"guard", "haste"},
	}, resp))

	other := "1d8+1"
	err := checkResponse(Expectations{DamageCommand: &other}, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected damage command "1d8+1", got "1d8"`)

	err = checkResponse(Expectations{ExpiredBuffs: []string{}}, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected expired buffs")
}
