package service

import (
	"basegraph.app/pulse/core/config"
	"basegraph.app/pulse/internal/flow"
	"basegraph.app/pulse/internal/narrative"
	"basegraph.app/pulse/internal/pattern"
	"basegraph.app/pulse/internal/scoring"
	"basegraph.app/pulse/internal/thread"
)

// Engine bundles the stateless analysis stages and the state machines they feed.
type Engine struct {
	Matcher   *pattern.Matcher
	Scorer    *scoring.Scorer
	Builder   *flow.Builder
	Assembler *flow.Assembler
	Tracker   *thread.Tracker
	Recorder  *narrative.Recorder
}

// NewEngine builds an engine with the default pattern table and weights.
// Zero values in cfg keep the defaults.
func NewEngine(cfg config.EngineConfig) *Engine {
	flowCfg := flow.DefaultConfig()
	if cfg.FlowResponseTimeout > 0 {
		flowCfg.ResponseTimeout = cfg.FlowResponseTimeout
	}
	if cfg.FlowMaxDuration > 0 {
		flowCfg.MaxFlowDuration = cfg.FlowMaxDuration
	}
	if cfg.FlowInfluenceThreshold > 0 {
		flowCfg.InfluenceThreshold = cfg.FlowInfluenceThreshold
	}

	threadCfg := thread.DefaultConfig()
	if cfg.ThreadMatchWindow > 0 {
		threadCfg.MatchWindow = cfg.ThreadMatchWindow
	}
	if cfg.ThreadMaxDuration > 0 {
		threadCfg.MaxDuration = cfg.ThreadMaxDuration
	}
	if cfg.ThreadStartThreshold > 0 {
		threadCfg.StartThreshold = cfg.ThreadStartThreshold
	}

	return &Engine{
		Matcher:   pattern.NewMatcher(pattern.DefaultTable()),
		Scorer:    scoring.NewScorer(scoring.DefaultWeights()),
		Builder:   flow.NewBuilder(),
		Assembler: flow.NewAssembler(flowCfg),
		Tracker:   thread.NewTracker(threadCfg),
		Recorder:  narrative.NewRecorder(narrative.DefaultTrendCap),
	}
}
