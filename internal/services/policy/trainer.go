package policy

import (
	"math/rand"

	"TradeForge/internal/domain/models"
	"TradeForge/internal/services/env"
	"TradeForge/pkg/logger"
)

// TrainConfig bounds one training run.
type TrainConfig struct {
	Episodes       int
	LearningRate   float64
	Gamma          float64
	SequenceLength int
	Seed           int64
}

// DefaultTrainConfig returns the parameters used by batch training.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Episodes:       20,
		LearningRate:   0.01,
		Gamma:          0.95,
		SequenceLength: DefaultSequenceLength,
		Seed:           1,
	}
}

// TrainSummary reports the outcome of a training run.
type TrainSummary struct {
	Episodes   int
	MeanReward float64
	Final      env.Metrics
}

// Trainer runs sampled episodes against an environment and applies
// head-only policy-gradient updates between episodes.
type Trainer struct {
	model *Model
	cfg   TrainConfig
	log   *logger.Logger
}

func NewTrainer(model *Model, cfg TrainConfig, log *logger.Logger) *Trainer {
	if cfg.SequenceLength <= 0 {
		cfg.SequenceLength = DefaultSequenceLength
	}
	return &Trainer{model: model, cfg: cfg, log: log}
}

type step struct {
	seq    []models.FeatureVector
	action models.ActionType
	reward float64
}

// Run trains over e using features aligned with the environment's bars.
// orderFor supplies sizing and protective levels for a prospective open
// at a bar index. The environment is left reset.
func (t *Trainer) Run(e *env.Environment, features []models.FeatureVector, orderFor func(index int, action models.ActionType) env.Order) TrainSummary {
	rng := rand.New(rand.NewSource(t.cfg.Seed))
	var summary TrainSummary
	var rewardSum float64
	var rewardN int

	for ep := 0; ep < t.cfg.Episodes; ep++ {
		e.Reset()
		steps := make([]step, 0, len(features))

		for !e.Done() {
			idx := e.Index()
			seq := window(features, idx, t.cfg.SequenceLength)
			action, _, _ := t.model.Sample(seq, rng)
			res := e.Step(action, orderFor(idx, action))
			steps = append(steps, step{seq: seq, action: action, reward: res.Reward})
			if res.Done {
				break
			}
		}

		// Discounted returns, then one head update per step.
		var g float64
		for i := len(steps) - 1; i >= 0; i-- {
			g = steps[i].reward + t.cfg.Gamma*g
			t.model.TrainStep(steps[i].seq, steps[i].action, g, t.cfg.LearningRate)
			rewardSum += steps[i].reward
			rewardN++
		}

		m := e.GetMetrics()
		t.log.Debug("training episode finished",
			logger.Int("episode", ep),
			logger.Int("trades", m.TotalTrades),
			logger.Float64("net_pnl", m.NetPnL),
		)
		summary.Final = m
	}

	summary.Episodes = t.cfg.Episodes
	if rewardN > 0 {
		summary.MeanReward = rewardSum / float64(rewardN)
	}
	e.Reset()
	return summary
}

// window returns the feature sequence ending at index, at most n long.
func window(features []models.FeatureVector, index, n int) []models.FeatureVector {
	if index >= len(features) {
		index = len(features) - 1
	}
	start := index + 1 - n
	if start < 0 {
		start = 0
	}
	return features[start : index+1]
}
