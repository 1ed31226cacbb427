package router

import (
	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// Heuristic is the deterministic first stage. Rules are checked in strict
// priority order: visual, navigation, datastore, then entity plus verb.
type Heuristic struct {
	visual     phraseSet
	navigation phraseSet
	datastore  phraseSet
	readVerbs  phraseSet
	mutVerbs   phraseSet
}

// NewHeuristic creates the heuristic stage from a vocabulary
func NewHeuristic(kw Keywords) *Heuristic {
	return &Heuristic{
		visual:     newPhraseSet(kw.Visual),
		navigation: newPhraseSet(kw.Navigation),
		datastore:  newPhraseSet(kw.Datastore),
		readVerbs:  newPhraseSet(kw.Verbs.Read),
		mutVerbs:   newPhraseSet(kw.Verbs.Mutate),
	}
}

// Classify inspects one utterance. entityNames are the table and display
// names of the exposed data sources.
func (h *Heuristic) Classify(utterance string, entityNames []string) entities.Stage1Result {
	tokens := tokenize(utterance)
	_, mutating := h.mutVerbs.match(tokens)

	result := entities.Stage1Result{Intent: entities.IntentChat, Rule: entities.RuleNone, MutationLeaning: mutating}
	if len(tokens) == 0 {
		return result
	}

	if m, ok := h.visual.match(tokens); ok {
		result.Intent, result.Rule, result.Matched = entities.IntentVision, entities.RuleVisual, m
		return result
	}
	if m, ok := h.navigation.match(tokens); ok {
		result.Intent, result.Rule, result.Matched = entities.IntentUIAction, entities.RuleNavigation, m
		return result
	}
	if m, ok := h.datastore.match(tokens); ok {
		result.Intent, result.Rule, result.Matched = entities.IntentDBQuery, entities.RuleDatastore, m
		return result
	}

	verb, hasVerb := h.readVerbs.match(tokens)
	if !hasVerb {
		verb, hasVerb = h.mutVerbs.match(tokens)
	}
	if hasVerb {
		for _, name := range entityNames {
			phrase := tokenize(name)
			if containsSequence(tokens, phrase, stemWord) {
				result.Intent, result.Rule = entities.IntentDBQuery, entities.RuleEntityVerb
				result.Matched = verb + " " + name
				return result
			}
		}
	}
	return result
}
