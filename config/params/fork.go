package params

import "github.com/prysmaticlabs/beacon-core/consensus-types/primitives"

// ForkSeq is the ordinal used for every fork-gated comparison in the module,
// per the "Duck typing and polymorphism over fork variants" design note:
// "is_post_electra" is expressed as fork_seq >= ForkSeq(Electra), never as a
// name comparison.
type ForkSeq uint8

const (
	Phase0 ForkSeq = iota
	Altair
	Bellatrix
	Capella
	Deneb
	Electra
	Fulu
	Gloas
)

func (f ForkSeq) String() string {
	switch f {
	case Phase0:
		return "phase0"
	case Altair:
		return "altair"
	case Bellatrix:
		return "bellatrix"
	case Capella:
		return "capella"
	case Deneb:
		return "deneb"
	case Electra:
		return "electra"
	case Fulu:
		return "fulu"
	case Gloas:
		return "gloas"
	default:
		return "unknown"
	}
}

// SlotToEpoch converts a slot to the epoch that contains it.
func SlotToEpoch(slot primitives.Slot) primitives.Epoch {
	return primitives.Epoch(uint64(slot) / uint64(BeaconConfig().SlotsPerEpoch))
}

// ActiveForkSeq returns the highest fork whose scheduled epoch has been
// reached by slot, given the config's ForkVersionSchedule.
func ActiveForkSeq(slot primitives.Slot) ForkSeq {
	cfg := BeaconConfig()
	epoch := SlotToEpoch(slot)
	best := Phase0
	for seq := Phase0; seq <= Gloas; seq++ {
		scheduled, ok := cfg.ForkVersionSchedule[seq]
		if !ok || scheduled == capPlaceholder {
			continue
		}
		if epoch >= scheduled {
			best = seq
		}
	}
	return best
}

func IsPostAltair(f ForkSeq) bool    { return f >= Altair }
func IsPostBellatrix(f ForkSeq) bool { return f >= Bellatrix }
func IsPostCapella(f ForkSeq) bool   { return f >= Capella }
func IsPostDeneb(f ForkSeq) bool     { return f >= Deneb }
func IsPostElectra(f ForkSeq) bool   { return f >= Electra }
func IsPostFulu(f ForkSeq) bool      { return f >= Fulu }
func IsPostGloas(f ForkSeq) bool     { return f >= Gloas }
