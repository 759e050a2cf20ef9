package wire

import "time"

// LevelChange is a single observed (or applied) pin level, timestamped with
// the agent's monotonic clock (spec.md §3): "the timestamp is the agent's
// monotonic clock, not wall clock; the controller translates on receipt."
type LevelChange struct {
	NewLevel  bool
	Timestamp time.Duration
}

func (lc LevelChange) EncodeTo(e *Encoder) {
	e.bl(lc.NewLevel)
	sec := uint64(lc.Timestamp / time.Second)
	nsec := uint32(lc.Timestamp % time.Second)
	e.u64(sec)
	e.u32(nsec)
}

func (lc LevelChange) Encode() []byte {
	e := NewEncoder()
	lc.EncodeTo(e)
	return e.Bytes()
}

func DecodeLevelChange(d *Decoder) (LevelChange, error) {
	lvl, err := d.bl()
	if err != nil {
		return LevelChange{}, err
	}
	sec, err := d.u64()
	if err != nil {
		return LevelChange{}, err
	}
	nsec, err := d.u32()
	if err != nil {
		return LevelChange{}, err
	}
	return LevelChange{
		NewLevel:  lvl,
		Timestamp: time.Duration(sec)*time.Second + time.Duration(nsec),
	}, nil
}
