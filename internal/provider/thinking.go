package provider

import "github.com/dohr-michael/ikigai/internal/ikerr"

// ThinkingFamily classifies how a model family expresses a thinking budget
// (spec §4.6).
type ThinkingFamily string

const (
	FamilyBudgetModel ThinkingFamily = "budget_model" // Anthropic extended thinking, Gemini 2.5
	FamilyLevelModel  ThinkingFamily = "level_model"  // OpenAI GPT-5, Gemini 3.x
	FamilyAdaptive    ThinkingFamily = "adaptive"      // Claude opus-4-6
)

// ModelThinking describes one model's thinking-family membership and,
// for budget-model providers, the min-cannot-disable exception.
type ModelThinking struct {
	Family             ThinkingFamily
	CannotDisable      bool // true for models that always think (e.g. Gemini 2.5 Pro)
	BudgetTokensByTier map[ThinkingLevel]int
}

// budgetTable is the (model, level) -> budget_tokens mapping for
// budget-model providers. Values are representative defaults; a deployment
// tunes them via config in a fuller build.
var budgetTable = map[string]ModelThinking{
	"claude-sonnet-4-5": {
		Family: FamilyBudgetModel,
		BudgetTokensByTier: map[ThinkingLevel]int{
			ThinkingMin:    0,
			ThinkingLow:    1024,
			ThinkingMedium: 4096,
			ThinkingHigh:   16384,
		},
	},
	"gemini-2.5-pro": {
		Family:        FamilyBudgetModel,
		CannotDisable: true,
		BudgetTokensByTier: map[ThinkingLevel]int{
			ThinkingMin:    2048,
			ThinkingLow:    2048,
			ThinkingMedium: 8192,
			ThinkingHigh:   24576,
		},
	},
	"gemini-2.5-flash": {
		Family: FamilyBudgetModel,
		BudgetTokensByTier: map[ThinkingLevel]int{
			ThinkingMin:    0,
			ThinkingLow:    1024,
			ThinkingMedium: 4096,
			ThinkingHigh:   16384,
		},
	},
	"gpt-5": {
		Family: FamilyLevelModel,
	},
	"gemini-3-pro": {
		Family: FamilyLevelModel,
	},
	"claude-opus-4-6": {
		Family: FamilyAdaptive,
	},
}

// LookupThinking returns the thinking-family descriptor for model, or
// FamilyLevelModel with no budget table as a permissive default for
// unrecognized models.
func LookupThinking(model string) ModelThinking {
	if mt, ok := budgetTable[model]; ok {
		return mt
	}
	return ModelThinking{Family: FamilyLevelModel}
}

// BudgetTokens resolves the budget_tokens value for a budget-model provider
// at the given level. Returns an OutOfRange error if level == min and the
// model cannot disable thinking.
func BudgetTokens(model string, level ThinkingLevel) (int, error) {
	mt := LookupThinking(model)
	if level == ThinkingMin && mt.CannotDisable {
		return 0, ikerr.Newf(ikerr.OutOfRange, "model %s cannot disable thinking", model)
	}
	if level == ThinkingMin {
		return 0, nil
	}
	budget, ok := mt.BudgetTokensByTier[level]
	if !ok {
		return 0, ikerr.Newf(ikerr.InvalidArg, "unknown thinking level %q for model %s", level, model)
	}
	return budget, nil
}

// LevelEffort maps a ThinkingLevel onto the effort enum used by
// level-model providers (minimal|low|medium|high). ThinkingMin maps to
// "minimal".
func LevelEffort(level ThinkingLevel) string {
	if level == ThinkingMin {
		return "minimal"
	}
	return string(level)
}
