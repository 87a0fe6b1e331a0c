package archive

// CoverageReward is the fraction of bins that gained a feasible individual
// this generation, identified by carrying a full-age solution.
func CoverageReward(a *Archive) float64 {
	covered, total := 0, 0
	a.eachBin(func(b *Bin) {
		total++
		for _, cs := range b.Population(Feasible) {
			if cs.Age == a.maxAge {
				covered++
				break
			}
		}
	})
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}

// FitnessReward is the relative improvement of the best feasible fitness
// among this generation's individuals over the best previously archived
// one. A non-positive baseline yields no reward.
func FitnessReward(a *Archive) float64 {
	var cur, prev float64
	var hasCur, hasPrev bool
	a.eachBin(func(b *Bin) {
		for _, cs := range b.Population(Feasible) {
			if cs.Age == a.maxAge {
				if !hasCur || cs.CFitness > cur {
					cur, hasCur = cs.CFitness, true
				}
			} else {
				if !hasPrev || cs.CFitness > prev {
					prev, hasPrev = cs.CFitness, true
				}
			}
		}
	})
	if !hasCur || !hasPrev || prev <= 0 {
		return 0
	}
	return (cur - prev) / prev
}

// Rewards registers the reward functions a bandit agent can combine.
var Rewards = map[string]RewardFunc{
	"coverage": CoverageReward,
	"fitness":  FitnessReward,
}
