package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/jwebster45206/macro-engine/internal/logger"
	"github.com/jwebster45206/macro-engine/pkg/actor"
	"github.com/jwebster45206/macro-engine/pkg/engine"
	"github.com/jwebster45206/macro-engine/pkg/macro"
)

// errConditionsNotMet is returned when the macro pre-guard fails
var errConditionsNotMet = errors.New("macro conditions not met")

type ConsoleConfig struct {
	CharacterPath string
	MacroPath     string
	AbilityID     string
	Turn          bool
	Preview       bool
	Choices       []int
	Copy          bool
	Save          bool
	Width         int
	Verbose       bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	log := logger.NewConsole(os.Stderr, cfg.Verbose)

	prompter := &teaPrompter{in: os.Stdin, out: os.Stdout}
	if err := run(cfg, engine.New(log), prompter, os.Stdout); err != nil {
		if !errors.Is(err, errConditionsNotMet) {
			fmt.Fprintf(os.Stderr, "%s\n", errorStyle.Render(err.Error()))
		}
		os.Exit(1)
	}
}

func parseFlags(args []string) (*ConsoleConfig, error) {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	cfg := &ConsoleConfig{}
	var choices string

	fs.StringVar(&cfg.CharacterPath, "character", "", "path to a character spec JSON file (required)")
	fs.StringVar(&cfg.MacroPath, "macro", "", "path to a macro JSON file; defaults to the ability or turn macro")
	fs.StringVar(&cfg.AbilityID, "ability", "", "ability supplying the base commands and default macro")
	fs.BoolVar(&cfg.Turn, "turn", false, "run the character's turn macro and tick buffs")
	fs.BoolVar(&cfg.Preview, "preview", false, "collect command text without changing the character")
	fs.StringVar(&choices, "choices", "", "comma-separated option indices answering show-choice prompts in order")
	fs.BoolVar(&cfg.Copy, "copy", false, "copy the built commands to the clipboard")
	fs.BoolVar(&cfg.Save, "save", false, "write the updated character back to its file")
	fs.IntVar(&cfg.Width, "width", defaultWidth, "wrap width for effect text")
	fs.BoolVar(&cfg.Verbose, "v", false, "log engine activity to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.CharacterPath == "" {
		return nil, fmt.Errorf("-character is required")
	}
	if cfg.MacroPath == "" && cfg.AbilityID == "" && !cfg.Turn {
		return nil, fmt.Errorf("one of -macro, -ability or -turn is required")
	}

	parsed, err := parseChoices(choices)
	if err != nil {
		return nil, err
	}
	cfg.Choices = parsed
	return cfg, nil
}

func parseChoices(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for part := range strings.SplitSeq(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid choice %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// run executes one macro for the configured character and prints a report
func run(cfg *ConsoleConfig, eng *engine.Engine, prompter engine.Prompter, out io.Writer) error {
	spec, err := actor.LoadCharacterSpec(cfg.CharacterPath)
	if err != nil {
		return err
	}
	c, err := actor.NewCharacterFromSpec(spec)
	if err != nil {
		return fmt.Errorf("failed to build character: %w", err)
	}

	var ability *actor.AbilitySpec
	if cfg.AbilityID != "" {
		ab, ok := c.Ability(cfg.AbilityID)
		if !ok {
			return fmt.Errorf("ability %q not found on %s", cfg.AbilityID, spec.ID)
		}
		ability = &ab
	}

	// An ability macro stays an ability macro even with -turn set
	var m *macro.Macro
	turn := cfg.Turn
	switch {
	case cfg.MacroPath != "":
		data, err := os.ReadFile(cfg.MacroPath)
		if err != nil {
			return fmt.Errorf("failed to read macro file: %w", err)
		}
		if m, err = macro.Parse(data); err != nil {
			return err
		}
	case ability != nil:
		m = ability.Macro
		turn = false
	case cfg.Turn:
		m = spec.TurnMacro
	}
	if m == nil {
		m = macro.NewEmptyMacro()
	}

	profile := macro.ProfileAbility
	if turn {
		profile = macro.ProfileTurn
	}
	if errs := macro.Validate(m, profile); len(errs) > 0 {
		return fmt.Errorf("macro is invalid:\n  %s", strings.Join(errs, "\n  "))
	}

	resolver := c.Resolver()
	if failures := eng.CollectConditionFailures(m.Conditions, resolver, nil); len(failures) > 0 {
		fmt.Fprint(out, renderFailures(failures))
		return errConditionsNotMet
	}

	opts := engine.Options{Preview: cfg.Preview, Prompter: prompter}
	if len(cfg.Choices) > 0 {
		opts.ChooseOption = engine.ChoiceSequence(cfg.Choices)
	}

	before := snapshotValues(c)
	result := eng.ExecuteMacro(m, resolver, opts)

	var expired []actor.ActiveBuff
	if turn && !cfg.Preview {
		expired = c.ExpireBuffs()
	}

	var judgeBase, damageBase string
	if ability != nil {
		judgeBase, damageBase = ability.JudgeCommand, ability.DamageCommand
	}
	commands := map[engine.Channel]string{
		engine.ChannelJudge:  result.CommandEffects.Judge.Apply(judgeBase),
		engine.ChannelDamage: result.CommandEffects.Damage.Apply(damageBase),
	}

	name := spec.Name
	if name == "" {
		name = spec.ID
	}
	fmt.Fprint(out, renderReport(report{
		Character: name,
		Preview:   cfg.Preview,
		Commands:  commands,
		Effects:   result.CommandEffects,
		Warnings:  result.Warnings,
		Before:    before,
		After:     snapshotValues(c),
		Expired:   expired,
	}, cfg.Width))

	if cfg.Copy {
		if text := clipboardText(commands); text != "" {
			if err := clipboard.WriteAll(text); err != nil {
				return fmt.Errorf("failed to copy to clipboard: %w", err)
			}
			fmt.Fprintln(out, promptStyle.Render("Copied to clipboard"))
		}
	}

	if cfg.Save && !cfg.Preview {
		if err := saveCharacter(cfg.CharacterPath, c); err != nil {
			return err
		}
		fmt.Fprintln(out, promptStyle.Render("Saved "+cfg.CharacterPath))
	}
	return nil
}

func saveCharacter(path string, c *actor.Character) error {
	data, err := json.MarshalIndent(c.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write character file: %w", err)
	}
	return nil
}
