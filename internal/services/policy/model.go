// Package policy implements the recurrent decision model: a single-layer
// GRU over a feature sequence with an actor head producing action
// probabilities and a critic head producing a state-value estimate.
// Evaluation and training are separate entry points; Evaluate never
// mutates weights.
package policy

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"TradeForge/internal/domain/models"
)

const (
	InputSize  = models.FeatureSize
	HiddenSize = 64
	ActionSize = 3

	// DefaultSequenceLength is the number of trailing feature vectors fed
	// to the GRU per decision.
	DefaultSequenceLength = 50
)

// Model holds the GRU and head weights. All fields are exported for
// JSON round-tripping through the weight store.
type Model struct {
	Inputs  int `json:"inputs"`
	Hidden  int `json:"hidden"`
	Actions int `json:"actions"`

	// GRU gate weights: update (z), reset (r), candidate (h).
	Wz [][]float64 `json:"wz"`
	Uz [][]float64 `json:"uz"`
	Bz []float64   `json:"bz"`
	Wr [][]float64 `json:"wr"`
	Ur [][]float64 `json:"ur"`
	Br []float64   `json:"br"`
	Wh [][]float64 `json:"wh"`
	Uh [][]float64 `json:"uh"`
	Bh []float64   `json:"bh"`

	ActorW  [][]float64 `json:"actor_w"`
	ActorB  []float64   `json:"actor_b"`
	CriticW []float64   `json:"critic_w"`
	CriticB float64     `json:"critic_b"`
}

// New builds a model with Xavier-style initialization from a fixed
// seed, so two models built with the same seed are identical.
func New(seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))
	m := &Model{Inputs: InputSize, Hidden: HiddenSize, Actions: ActionSize}

	m.Wz, m.Uz, m.Bz = initGate(rng, m.Hidden, m.Inputs)
	m.Wr, m.Ur, m.Br = initGate(rng, m.Hidden, m.Inputs)
	m.Wh, m.Uh, m.Bh = initGate(rng, m.Hidden, m.Inputs)

	scale := math.Sqrt(2.0 / float64(m.Hidden))
	m.ActorW = randMatrix(rng, m.Actions, m.Hidden, scale)
	m.ActorB = make([]float64, m.Actions)
	m.CriticW = randVector(rng, m.Hidden, scale)

	return m
}

func initGate(rng *rand.Rand, hidden, inputs int) ([][]float64, [][]float64, []float64) {
	wScale := math.Sqrt(2.0 / float64(inputs+hidden))
	uScale := math.Sqrt(2.0 / float64(2*hidden))
	return randMatrix(rng, hidden, inputs, wScale),
		randMatrix(rng, hidden, hidden, uScale),
		make([]float64, hidden)
}

func randMatrix(rng *rand.Rand, rows, cols int, scale float64) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = randVector(rng, cols, scale)
	}
	return m
}

func randVector(rng *rand.Rand, n int, scale float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64() * scale
	}
	return v
}

// forward runs the GRU over the sequence and returns the final hidden
// state.
func (m *Model) forward(seq []models.FeatureVector) []float64 {
	h := make([]float64, m.Hidden)
	z := make([]float64, m.Hidden)
	r := make([]float64, m.Hidden)
	cand := make([]float64, m.Hidden)

	for _, fv := range seq {
		x := fv[:]
		for i := 0; i < m.Hidden; i++ {
			z[i] = sigmoid(dot(m.Wz[i], x) + dot(m.Uz[i], h) + m.Bz[i])
			r[i] = sigmoid(dot(m.Wr[i], x) + dot(m.Ur[i], h) + m.Br[i])
		}
		for i := 0; i < m.Hidden; i++ {
			var uh float64
			for j := 0; j < m.Hidden; j++ {
				uh += m.Uh[i][j] * r[j] * h[j]
			}
			cand[i] = math.Tanh(dot(m.Wh[i], x) + uh + m.Bh[i])
		}
		for i := 0; i < m.Hidden; i++ {
			h[i] = (1-z[i])*h[i] + z[i]*cand[i]
		}
	}
	return h
}

// Probs returns the action probability distribution and the critic's
// value estimate for a sequence.
func (m *Model) Probs(seq []models.FeatureVector) ([]float64, float64) {
	h := m.forward(seq)
	logits := make([]float64, m.Actions)
	for i := 0; i < m.Actions; i++ {
		logits[i] = dot(m.ActorW[i], h) + m.ActorB[i]
	}
	return softmax(logits), dot(m.CriticW, h) + m.CriticB
}

// Evaluate is the deterministic inference path: it returns the argmax
// action with the winning probability mapped to a 0..100 confidence.
// It never samples and never mutates the model.
func (m *Model) Evaluate(seq []models.FeatureVector) (models.ActionType, float64) {
	probs, _ := m.Probs(seq)
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return models.ActionType(best), probs[best] * 100
}

// Sample draws an action from the policy distribution. Used only
// during training.
func (m *Model) Sample(seq []models.FeatureVector, rng *rand.Rand) (models.ActionType, []float64, float64) {
	probs, value := m.Probs(seq)
	u := rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if u <= cum {
			return models.ActionType(i), probs, value
		}
	}
	return models.ActionType(len(probs) - 1), probs, value
}

// TrainStep applies one advantage-weighted update to the actor and
// critic heads for a single decision. The recurrent weights stay
// frozen; only the heads move, which keeps a step cheap enough to run
// inline during backtests.
func (m *Model) TrainStep(seq []models.FeatureVector, action models.ActionType, target, lr float64) {
	h := m.forward(seq)
	logits := make([]float64, m.Actions)
	for i := 0; i < m.Actions; i++ {
		logits[i] = dot(m.ActorW[i], h) + m.ActorB[i]
	}
	probs := softmax(logits)
	value := dot(m.CriticW, h) + m.CriticB
	advantage := target - value

	for i := 0; i < m.Actions; i++ {
		ind := 0.0
		if models.ActionType(i) == action {
			ind = 1
		}
		g := lr * advantage * (ind - probs[i])
		for j := 0; j < m.Hidden; j++ {
			m.ActorW[i][j] += g * h[j]
		}
		m.ActorB[i] += g
	}

	td := lr * advantage
	for j := 0; j < m.Hidden; j++ {
		m.CriticW[j] += td * h[j]
	}
	m.CriticB += td
}

// Serialize encodes the full weight set as JSON.
func (m *Model) Serialize() ([]byte, error) {
	return json.Marshal(m)
}

// Deserialize restores a model from Serialize output, rejecting weight
// sets whose dimensions do not match the current architecture.
func Deserialize(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model weights: %w", err)
	}
	if m.Inputs != InputSize || m.Hidden == 0 || m.Actions != ActionSize {
		return nil, fmt.Errorf("incompatible model shape %dx%dx%d", m.Inputs, m.Hidden, m.Actions)
	}
	if len(m.Wz) != m.Hidden || len(m.ActorW) != m.Actions || len(m.CriticW) != m.Hidden {
		return nil, fmt.Errorf("truncated model weights")
	}
	return &m, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, l := range logits[1:] {
		if l > max {
			max = l
		}
	}
	var sum float64
	out := make([]float64, len(logits))
	for i, l := range logits {
		out[i] = math.Exp(l - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
