package transport

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/trace"
)

// historyTracker follows the tracks of one history on one worker.
type historyTracker struct {
	sim   *Simulation
	wc    *sim.WorkerContext
	trace *trace.SimulationTrace // nil when the history is not traced

	tracks     int
	collisions int
}

// transport follows p until it is terminated. Only collision sampling
// failures are returned; navigation failures lose the particle.
// A source particle enters its birth cell; a secondary is born in a cell
// the history already occupies and enters nothing.
func (ht *historyTracker) transport(p *sim.ParticleState, source bool) error {
	s := ht.sim
	h := s.model.Handler
	nav := s.model.Navigator
	worker := ht.wc.ID
	rng := ht.wc.Random

	rec := trace.ParticleRecord{History: p.HistoryNumber, Sequence: ht.tracks, Generation: p.GenerationNumber}
	ht.tracks++
	s.diag.tracks.Inc()

	cell, err := nav.FindCellContainingRay(sim.Ray{Position: p.Position, Direction: p.Direction}, nil)
	if err != nil {
		logrus.Debugf("history %d: particle born outside the model: %v", p.HistoryNumber, err)
		ht.finish(p, &rec, trace.FateLost)
		return nil
	}
	p.Cell = cell
	if source {
		h.UpdateObserversFromParticleEnteringCellEvent(worker, p, cell)
	}

	trackCollisions := 0
	for {
		material := s.model.Materials[p.Cell]
		sigmaT := 0.0
		if material != nil {
			r := s.ranges[material]
			if p.Energy < r.lo || p.Energy > r.hi {
				ht.finish(p, &rec, trace.FateCutoff)
				return nil
			}
			sigmaT = material.MacroscopicTotalCrossSection(p.Energy)
		}

		hit, err := nav.FireRay(sim.Ray{Position: p.Position, Direction: p.Direction}, p.Cell)
		if err != nil {
			logrus.Warnf("history %d: lost in cell %d: %v", p.HistoryNumber, p.Cell, err)
			ht.finish(p, &rec, trace.FateLost)
			return nil
		}

		collisionDistance := math.Inf(1)
		if sigmaT > 0 {
			collisionDistance = -math.Log(1-rng.Float64()) / sigmaT
		}
		if math.IsInf(collisionDistance, 1) && math.IsInf(hit.Distance, 1) {
			logrus.Warnf("history %d: particle in cell %d never reaches a surface", p.HistoryNumber, p.Cell)
			ht.finish(p, &rec, trace.FateLost)
			return nil
		}

		if collisionDistance < hit.Distance {
			p.Advance(collisionDistance)
			h.UpdateObserversFromParticleSubtrackEndingInCellEvent(worker, p, p.Cell, collisionDistance)
			h.UpdateObserversFromParticleCollidingInCellEvent(worker, p, p.Cell, 1/sigmaT)

			energyIn, weightIn := p.Energy, p.Weight
			banked := ht.wc.Bank.Len()
			if s.cfg.SurvivalBias {
				err = material.CollideSurvivalBias(p, ht.wc.Bank, rng)
			} else {
				err = material.CollideAnalogue(p, ht.wc.Bank, rng)
			}
			if err != nil {
				return err
			}
			emitted := ht.wc.Bank.Len() - banked
			rec.Collisions++
			rec.Secondaries += emitted
			trackCollisions++
			s.diag.collisions.Inc()
			ht.recordCollision(p, energyIn, weightIn, emitted)

			if p.IsGone() {
				ht.finish(p, &rec, trace.FateAbsorbed)
				return nil
			}
			if ht.roulette(p) {
				ht.finish(p, &rec, trace.FateRoulette)
				return nil
			}
			if trackCollisions >= s.cfg.MaxCollisions {
				logrus.Warnf("history %d: track exceeded %d collisions", p.HistoryNumber, s.cfg.MaxCollisions)
				ht.finish(p, &rec, trace.FateLost)
				return nil
			}
			continue
		}

		p.Advance(hit.Distance)
		h.UpdateObserversFromParticleSubtrackEndingInCellEvent(worker, p, p.Cell, hit.Distance)
		h.UpdateObserversFromParticleLeavingCellEvent(worker, p, p.Cell)
		h.UpdateObserversFromParticleCrossingSurfaceEvent(worker, p, hit.Surface, r3.Dot(p.Direction, hit.Normal))
		rec.Crossings++
		s.diag.crossings.Inc()

		if hit.Escaped {
			ht.finish(p, &rec, trace.FateEscaped)
			return nil
		}
		p.Cell = hit.NextCell
		h.UpdateObserversFromParticleEnteringCellEvent(worker, p, p.Cell)
	}
}

// roulette plays Russian roulette on a particle below the weight cutoff and
// reports whether it was killed. Survivors carry the survival weight.
func (ht *historyTracker) roulette(p *sim.ParticleState) bool {
	cfg := ht.sim.cfg
	if cfg.WeightCutoff == 0 || p.Weight >= cfg.WeightCutoff {
		return false
	}
	if ht.wc.Random.Float64() < p.Weight/cfg.WeightSurvival {
		p.Weight = cfg.WeightSurvival
		return false
	}
	p.SetGone()
	return true
}

func (ht *historyTracker) recordCollision(p *sim.ParticleState, energyIn, weightIn float64, emitted int) {
	seq := ht.collisions
	ht.collisions++
	if ht.trace == nil || !ht.trace.TracesCollisions(p.HistoryNumber) {
		return
	}
	rec := trace.CollisionRecord{
		History:  p.HistoryNumber,
		Sequence: seq,
		Cell:     int64(p.Cell),
		EnergyIn: energyIn,
		WeightIn: weightIn,
		Emitted:  emitted,
	}
	if !p.IsGone() {
		rec.EnergyOut = p.Energy
		rec.WeightOut = p.Weight
	}
	ht.trace.RecordCollision(rec)
}

// finish terminates p with fate and records the track.
func (ht *historyTracker) finish(p *sim.ParticleState, rec *trace.ParticleRecord, fate trace.Fate) {
	if fate == trace.FateLost {
		p.SetLost()
	} else {
		p.SetGone()
	}
	ht.sim.diag.recordFate(fate)
	if ht.trace == nil {
		return
	}
	rec.Fate = fate
	rec.FinalEnergy = p.Energy
	rec.FinalWeight = p.Weight
	ht.trace.RecordParticle(*rec)
}
