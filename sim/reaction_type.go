package sim

import "fmt"

// ReactionType identifies a neutron reaction channel by its ENDF MT number.
type ReactionType int

const (
	TotalReaction        ReactionType = 1
	ElasticReaction      ReactionType = 2
	NonelasticReaction   ReactionType = 3
	TotalInelastic       ReactionType = 4
	AnythingReaction     ReactionType = 5
	N2NDReaction         ReactionType = 11
	N2NReaction          ReactionType = 16
	N3NReaction          ReactionType = 17
	TotalFission         ReactionType = 18
	FirstChanceFission   ReactionType = 19
	SecondChanceFission  ReactionType = 20
	ThirdChanceFission   ReactionType = 21
	NNAlphaReaction      ReactionType = 22
	NNPReaction          ReactionType = 28
	N4NReaction          ReactionType = 37
	FourthChanceFission  ReactionType = 38
	FirstLevelInelastic  ReactionType = 51
	LastLevelInelastic   ReactionType = 90
	ContinuumInelastic   ReactionType = 91
	TotalAbsorption      ReactionType = 101 // disappearance
	NGammaReaction       ReactionType = 102
	NPReaction           ReactionType = 103
	NDReaction           ReactionType = 104
	NTReaction           ReactionType = 105
	NHe3Reaction         ReactionType = 106
	NAlphaReaction       ReactionType = 107
	N2AlphaReaction      ReactionType = 108
	N2PReaction          ReactionType = 111
	ProtonProduction     ReactionType = 203
	DeuteronProduction   ReactionType = 204
	TritonProduction     ReactionType = 205
	He3Production        ReactionType = 206
	AlphaProduction      ReactionType = 207
	NoReaction           ReactionType = 0
)

var reactionTypeNames = map[ReactionType]string{
	TotalReaction:       "n,total",
	ElasticReaction:     "n,elastic",
	NonelasticReaction:  "n,nonelastic",
	TotalInelastic:      "n,inelastic",
	AnythingReaction:    "n,anything",
	N2NDReaction:        "n,2nd",
	N2NReaction:         "n,2n",
	N3NReaction:         "n,3n",
	TotalFission:        "n,fission",
	FirstChanceFission:  "n,f",
	SecondChanceFission: "n,nf",
	ThirdChanceFission:  "n,2nf",
	NNAlphaReaction:     "n,nalpha",
	NNPReaction:         "n,np",
	N4NReaction:         "n,4n",
	FourthChanceFission: "n,3nf",
	ContinuumInelastic:  "n,n'continuum",
	TotalAbsorption:     "n,disappearance",
	NGammaReaction:      "n,gamma",
	NPReaction:          "n,p",
	NDReaction:          "n,d",
	NTReaction:          "n,t",
	NHe3Reaction:        "n,He3",
	NAlphaReaction:      "n,alpha",
	N2AlphaReaction:     "n,2alpha",
	N2PReaction:         "n,2p",
	ProtonProduction:    "total proton production",
	DeuteronProduction:  "total deuteron production",
	TritonProduction:    "total triton production",
	He3Production:       "total He3 production",
	AlphaProduction:     "total alpha production",
	NoReaction:          "none",
}

// LevelInelastic returns the reaction type exciting the given discrete level (1..40).
func LevelInelastic(level int) ReactionType {
	if level < 1 || level > int(LastLevelInelastic-FirstLevelInelastic)+1 {
		panic(fmt.Sprintf("inelastic level %d out of range [1,40]", level))
	}
	return FirstLevelInelastic + ReactionType(level-1)
}

// IsLevelInelastic reports whether the type is one of the discrete (n,n') levels.
func (t ReactionType) IsLevelInelastic() bool {
	return t >= FirstLevelInelastic && t <= LastLevelInelastic
}

// IsPartialFission reports whether the type is a first..fourth chance fission.
func (t ReactionType) IsPartialFission() bool {
	switch t {
	case FirstChanceFission, SecondChanceFission, ThirdChanceFission, FourthChanceFission:
		return true
	}
	return false
}

// IsRedundant reports whether the type is always a sum of other channels
// and must never be sampled directly.
func (t ReactionType) IsRedundant() bool {
	switch t {
	case TotalReaction, NonelasticReaction, AnythingReaction, TotalAbsorption:
		return true
	}
	return t >= ProtonProduction && t <= AlphaProduction
}

func (t ReactionType) String() string {
	if name, ok := reactionTypeNames[t]; ok {
		return name
	}
	if t.IsLevelInelastic() {
		return fmt.Sprintf("n,n'%d", int(t-FirstLevelInelastic)+1)
	}
	return fmt.Sprintf("mt%d", int(t))
}
