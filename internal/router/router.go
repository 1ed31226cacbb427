// Package router selects the execution strategy of a conversational turn.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
	"github.com/FreePeak/db-copilot/internal/domain/repositories"
	"github.com/FreePeak/db-copilot/internal/logger"
	"github.com/FreePeak/db-copilot/internal/metrics"
)

// DefaultClassifierTimeout bounds the second stage
const DefaultClassifierTimeout = 3 * time.Second

// Config tunes the router
type Config struct {
	Stage2Enabled     bool
	ClassifierTimeout time.Duration
	// FailClosedOnMutation sends mutation-leaning utterances to the data
	// path when the classifier fails, where every call is validated.
	FailClosedOnMutation bool
}

// Router is the two-stage request router
type Router struct {
	heuristic  *Heuristic
	classifier Classifier
	catalog    repositories.CatalogRepository
	cfg        Config
}

// New creates a router. classifier and catalog may be nil.
func New(heuristic *Heuristic, classifier Classifier, catalog repositories.CatalogRepository, cfg Config) *Router {
	if cfg.ClassifierTimeout <= 0 {
		cfg.ClassifierTimeout = DefaultClassifierTimeout
	}
	return &Router{heuristic: heuristic, classifier: classifier, catalog: catalog, cfg: cfg}
}

// Route always returns a decision. The heuristic decides when a rule
// fires; otherwise the classifier is asked within its timeout and any
// failure falls back to the heuristic answer.
func (r *Router) Route(ctx context.Context, messages []entities.Message) entities.RouterDecision {
	var utterance string
	if last, ok := entities.LastUserMessage(messages); ok {
		utterance = last.Content
	}

	stage1 := r.heuristic.Classify(utterance, r.entityNames(ctx))
	metrics.RouterStage1Total.WithLabelValues(string(stage1.Rule)).Inc()

	var decision entities.RouterDecision
	switch {
	case stage1.Decided():
		decision = entities.DecisionFor(stage1.Intent)
		decision.Reason = fmt.Sprintf("stage1 %s: %q", stage1.Rule, stage1.Matched)
		decision.Stage2 = &entities.Stage2Result{Outcome: entities.Stage2Skipped}
	case !r.cfg.Stage2Enabled || r.classifier == nil:
		decision = entities.DecisionFor(stage1.Intent)
		decision.Reason = "stage1 no match, classifier disabled"
		decision.Stage2 = &entities.Stage2Result{Outcome: entities.Stage2Disabled}
	default:
		stage2 := r.classify(ctx, messages)
		decision = r.resolve(stage1, stage2)
	}
	decision.Stage1 = stage1

	metrics.RouterStage2Total.WithLabelValues(string(decision.Stage2.Outcome)).Inc()
	metrics.RouterDecisionsTotal.WithLabelValues(string(decision.Intent)).Inc()
	logger.Debug("Routed turn to %s (%s)", decision.Intent, decision.Reason)
	return decision
}

func (r *Router) classify(ctx context.Context, messages []entities.Message) entities.Stage2Result {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ClassifierTimeout)
	defer cancel()

	start := time.Now()
	intent, raw, err := r.classifier.Classify(ctx, messages)
	metrics.RouterStage2Latency.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return entities.Stage2Result{Outcome: entities.Stage2OK, Intent: intent, Raw: raw}
	case errors.Is(err, ErrUnparseable):
		return entities.Stage2Result{Outcome: entities.Stage2Unparseable, Intent: entities.IntentChat, Raw: raw, Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		logger.Warn("Classifier timed out after %s", r.cfg.ClassifierTimeout)
		return entities.Stage2Result{Outcome: entities.Stage2Timeout, Intent: entities.IntentChat, Error: err.Error()}
	default:
		logger.Warn("Classifier failed: %v", err)
		return entities.Stage2Result{Outcome: entities.Stage2Error, Intent: entities.IntentChat, Error: err.Error()}
	}
}

func (r *Router) resolve(stage1 entities.Stage1Result, stage2 entities.Stage2Result) entities.RouterDecision {
	if stage2.Outcome == entities.Stage2OK {
		decision := entities.DecisionFor(stage2.Intent)
		decision.Reason = fmt.Sprintf("stage2 %s", stage2.Intent)
		decision.Stage2 = &stage2
		return decision
	}

	fallback := stage1.Intent
	reason := fmt.Sprintf("stage2 %s, kept stage1", stage2.Outcome)
	if stage1.MutationLeaning && r.cfg.FailClosedOnMutation {
		fallback = entities.IntentDBQuery
		reason = fmt.Sprintf("stage2 %s, mutation-leaning utterance sent to validated data path", stage2.Outcome)
	}
	decision := entities.DecisionFor(fallback)
	decision.Reason = reason
	decision.Stage2 = &stage2
	return decision
}

func (r *Router) entityNames(ctx context.Context) []string {
	if r.catalog == nil {
		return nil
	}
	catalog, err := r.catalog.ListDataSources(ctx)
	if err != nil {
		logger.Warn("Router could not read catalog: %v", err)
		return nil
	}
	return catalog.EntityNames()
}
