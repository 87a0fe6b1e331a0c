// Package bandit implements the multi-armed bandit agents that pick which
// (emitter, merge-rule) pair drives the next archive step.
package bandit

import (
	"encoding/json"
	"math"
	"math/rand"

	"github.com/evoship/evoship/pkg/errors"
)

// Arm is one bandit action, encoded as "emitterName;mergeRule".
type Arm struct {
	Action string `json:"action"`
}

// Agent chooses arms and learns from scalar rewards.
type Agent interface {
	ChooseArm() Arm
	Reward(arm Arm, reward float64)
	Arms() []Arm
	State() ([]byte, error)
}

// agentState is the serialized form shared by both agents.
type agentState struct {
	Kind    string    `json:"kind"`
	Arms    []Arm     `json:"arms"`
	Values  []float64 `json:"values"`
	Counts  []int     `json:"counts"`
	Epsilon float64   `json:"epsilon,omitempty"`
	Steps   int       `json:"steps,omitempty"`
}

// EpsilonGreedyAgent explores uniformly with decaying probability epsilon
// and otherwise exploits the best mean reward.
type EpsilonGreedyAgent struct {
	arms    []Arm
	values  []float64
	counts  []int
	epsilon float64
	decay   float64
	rng     *rand.Rand
}

// NewEpsilonGreedyAgent creates an agent over the given arms with the
// initial exploration rate. Epsilon decays multiplicatively on every
// reward.
func NewEpsilonGreedyAgent(arms []Arm, epsilon, decay float64, rng *rand.Rand) (*EpsilonGreedyAgent, error) {
	if len(arms) == 0 {
		return nil, errors.New(errors.UnsupportedAgent, "bandit agent needs at least one arm")
	}
	if epsilon <= 0 || epsilon > 1 {
		epsilon = 0.2
	}
	if decay <= 0 || decay > 1 {
		decay = 0.99
	}
	return &EpsilonGreedyAgent{
		arms:    append([]Arm(nil), arms...),
		values:  make([]float64, len(arms)),
		counts:  make([]int, len(arms)),
		epsilon: epsilon,
		decay:   decay,
		rng:     rng,
	}, nil
}

func (a *EpsilonGreedyAgent) ChooseArm() Arm {
	if a.rng.Float64() < a.epsilon {
		return a.arms[a.rng.Intn(len(a.arms))]
	}
	best := 0
	for i := 1; i < len(a.values); i++ {
		if a.values[i] > a.values[best] {
			best = i
		}
	}
	return a.arms[best]
}

// Reward updates the chosen arm's running mean and decays epsilon.
// Unknown arms are ignored.
func (a *EpsilonGreedyAgent) Reward(arm Arm, reward float64) {
	for i, candidate := range a.arms {
		if candidate.Action != arm.Action {
			continue
		}
		a.counts[i]++
		a.values[i] += (reward - a.values[i]) / float64(a.counts[i])
		a.epsilon *= a.decay
		return
	}
}

func (a *EpsilonGreedyAgent) Arms() []Arm {
	return append([]Arm(nil), a.arms...)
}

func (a *EpsilonGreedyAgent) State() ([]byte, error) {
	return json.Marshal(agentState{
		Kind:    "epsilon-greedy",
		Arms:    a.arms,
		Values:  a.values,
		Counts:  a.counts,
		Epsilon: a.epsilon,
	})
}

// UCBAgent picks arms by the UCB1 upper confidence bound, trying every arm
// once before trusting the statistics.
type UCBAgent struct {
	arms   []Arm
	values []float64
	counts []int
	steps  int
}

// NewUCBAgent creates a UCB1 agent over the given arms.
func NewUCBAgent(arms []Arm) (*UCBAgent, error) {
	if len(arms) == 0 {
		return nil, errors.New(errors.UnsupportedAgent, "bandit agent needs at least one arm")
	}
	return &UCBAgent{
		arms:   append([]Arm(nil), arms...),
		values: make([]float64, len(arms)),
		counts: make([]int, len(arms)),
	}, nil
}

func (a *UCBAgent) ChooseArm() Arm {
	for i, n := range a.counts {
		if n == 0 {
			return a.arms[i]
		}
	}
	best, bestScore := 0, math.Inf(-1)
	for i := range a.arms {
		score := a.values[i] + math.Sqrt(2*math.Log(float64(a.steps))/float64(a.counts[i]))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return a.arms[best]
}

func (a *UCBAgent) Reward(arm Arm, reward float64) {
	for i, candidate := range a.arms {
		if candidate.Action != arm.Action {
			continue
		}
		a.counts[i]++
		a.steps++
		a.values[i] += (reward - a.values[i]) / float64(a.counts[i])
		return
	}
}

func (a *UCBAgent) Arms() []Arm {
	return append([]Arm(nil), a.arms...)
}

func (a *UCBAgent) State() ([]byte, error) {
	return json.Marshal(agentState{
		Kind:   "ucb",
		Arms:   a.arms,
		Values: a.values,
		Counts: a.counts,
		Steps:  a.steps,
	})
}

// RestoreAgent rebuilds an agent from its serialized state.
func RestoreAgent(data []byte, rng *rand.Rand) (Agent, error) {
	var st agentState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedAgent, "malformed agent state")
	}
	switch st.Kind {
	case "epsilon-greedy":
		agent, err := NewEpsilonGreedyAgent(st.Arms, st.Epsilon, 0.99, rng)
		if err != nil {
			return nil, err
		}
		copy(agent.values, st.Values)
		copy(agent.counts, st.Counts)
		return agent, nil
	case "ucb":
		agent, err := NewUCBAgent(st.Arms)
		if err != nil {
			return nil, err
		}
		copy(agent.values, st.Values)
		copy(agent.counts, st.Counts)
		agent.steps = st.Steps
		return agent, nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.UnsupportedAgent, "unrecognized agent kind"),
			errors.Fields{"kind": st.Kind})
	}
}
