package collab

import "math/rand"

// Display names are cosmetic labels, not identities; collisions are fine.
var (
	adjectives = []string{"Red", "Blue", "Green", "Purple", "Orange", "Pink", "Yellow", "Cyan", "Magenta", "Lime"}
	animals    = []string{"Panda", "Fox", "Wolf", "Bear", "Eagle", "Lion", "Tiger", "Dolphin", "Owl", "Hawk"}
)

// randomName picks an adjective+animal display name for a new participant.
func randomName() string {
	return adjectives[rand.Intn(len(adjectives))] + " " + animals[rand.Intn(len(animals))]
}
