package sim

// BankedParticle is a pending particle plus the reaction that produced it.
// Origin is NoReaction for source particles.
type BankedParticle struct {
	State  *ParticleState
	Origin ReactionType
}

// ParticleBank is a LIFO container of pending particle states.
// Each worker owns its own bank, so no locking is done here.
type ParticleBank struct {
	particles []BankedParticle
}

// NewParticleBank creates an empty bank.
func NewParticleBank() *ParticleBank {
	return &ParticleBank{particles: make([]BankedParticle, 0, 16)}
}

// Push adds a particle with no originating reaction.
func (b *ParticleBank) Push(p *ParticleState) {
	b.PushFromReaction(p, NoReaction)
}

// PushFromReaction adds a particle tagged with the reaction that emitted it.
func (b *ParticleBank) PushFromReaction(p *ParticleState, origin ReactionType) {
	b.particles = append(b.particles, BankedParticle{State: p, Origin: origin})
}

// Pop removes and returns the most recently pushed particle.
func (b *ParticleBank) Pop() (BankedParticle, bool) {
	n := len(b.particles)
	if n == 0 {
		return BankedParticle{}, false
	}
	top := b.particles[n-1]
	b.particles[n-1] = BankedParticle{}
	b.particles = b.particles[:n-1]
	return top, true
}

// Top returns the most recently pushed particle without removing it.
func (b *ParticleBank) Top() (BankedParticle, bool) {
	if len(b.particles) == 0 {
		return BankedParticle{}, false
	}
	return b.particles[len(b.particles)-1], true
}

func (b *ParticleBank) Len() int { return len(b.particles) }

func (b *ParticleBank) IsEmpty() bool { return len(b.particles) == 0 }

// Clear drops every pending particle. Used when a history is abandoned.
func (b *ParticleBank) Clear() {
	for i := range b.particles {
		b.particles[i] = BankedParticle{}
	}
	b.particles = b.particles[:0]
}
