// Package brackets holds the single elimination pairing logic and the
// websocket hub that fans bracket updates out to tournament rooms.
package brackets

// Pairing is one prospective match in a round. Participant2ID is nil for a
// trailing bye: the lone participant advances without playing.
type Pairing struct {
	MatchNumber    int
	Participant1ID int
	Participant2ID *int
}

func (p Pairing) IsBye() bool {
	return p.Participant2ID == nil
}

// PairSequential pairs the given participants in their existing order: 1st
// with 2nd, 3rd with 4th, and so on. No reseeding. An odd count leaves the
// last participant with a bye. Match numbers start at 1.
//
// Byes resolve at creation time (completed, sole occupant as winner), which
// keeps the round-completion check uniform for phase progression: a round
// is done when every match in it is completed, byes included.
func PairSequential(participantIDs []int) []Pairing {
	pairings := make([]Pairing, 0, (len(participantIDs)+1)/2)

	for i := 0; i < len(participantIDs); i += 2 {
		pairing := Pairing{
			MatchNumber:    len(pairings) + 1,
			Participant1ID: participantIDs[i],
		}
		if i+1 < len(participantIDs) {
			p2 := participantIDs[i+1]
			pairing.Participant2ID = &p2
		}
		pairings = append(pairings, pairing)
	}
	return pairings
}
