package synth

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Reciter is a selectable voice with its recitation style.
type Reciter struct {
	ID     string
	Name   string
	Voice  string
	Style  string
	Family string
}

// Catalog is an ordered list of reciters.
type Catalog []Reciter

// DefaultCatalog returns the built-in reciters.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			ID:     "zephyr",
			Name:   "Female: Murattal (Clear, Teacher-like)",
			Voice:  "Zephyr",
			Family: "Murattal",
			Style:  "Recite in a clear, articulate, and masterfully controlled Murattal (Tarteel) style. Use a warm, nurturing, and encouraging female voice, like a teacher. Ensure flawless Tajweed, crisp pronunciation, and a measured, steady pace for clarity: ",
		},
		{
			ID:     "kore",
			Name:   "Female: Murattal (Serene & Reflective)",
			Voice:  "Kore",
			Family: "Murattal",
			Style:  "Recite in a serene, deeply moving, and devotional Murattal style, as if in prayer. Use a warm, sincere, and heartfelt female voice with an ethereal quality, full of humble submission (khushu'). The pace is gentle and flowing to inspire tranquility. Ensure flawless Tajweed and a natural, understated melodic rhythm: ",
		},
		{
			ID:     "puck-tadwir",
			Name:   "Male: Tadwir (Moderate & Rhythmic)",
			Voice:  "Puck",
			Family: "Murattal",
			Style:  "Recite in a masterful, flowing Tadwir style (a moderate pace). Use a resonant, powerful, and confident male voice with a clear, steady rhythm that is engaging and easy to follow. Ensure flawless Tajweed, including all rules of Madd, Ghunnah, and articulation: ",
		},
		{
			ID:     "charon",
			Name:   "Male: Tahqiq (Slow & Meticulous)",
			Voice:  "Charon",
			Family: "Murattal",
			Style:  "Recite in a flawless Tahqiq style. Use a deep, commanding, yet humble voice filled with reverence. The pace must be exceptionally slow, clear, and meticulous, focusing on perfect articulation (Makharij) of every letter and Tajweed rule. The tone should be deeply reverent and authoritative: ",
		},
		{
			ID:     "fenrir",
			Name:   "Male: Mujawwad (Minshawi Inspired)",
			Voice:  "Fenrir",
			Family: "Mujawwad",
			Style:  "Recite in a masterful Mujawwad style inspired by Sheikh al-Minshawi. The voice must be deeply resonant, conveying a profound sense of huzn (reverent sadness) and humility with a pure, slightly nasal timbre. Use varied pacing with contemplative pauses, flawless Tajweed, clear articulation, and masterful control over melodic transitions and elongations (Madd), with a beautiful ghunnah (nasalization): ",
		},
		{
			ID:     "puck",
			Name:   "Male: Mujawwad (Abdul Basit Inspired)",
			Voice:  "Puck",
			Family: "Mujawwad",
			Style:  "Recite in a grand, majestic, and melodic Mujawwad style inspired by Sheikh Abdul Basit. Use a powerful, golden, and exceptionally controlled voice filled with awe. Feature flawless Tajweed and legendary breath control for long, soaring melodic phrases. Use dynamic vocal modulation and precise, resonant elongations (Madd): ",
		},
		{
			ID:     "puck-warsh",
			Name:   "Male: Warsh (North African Style)",
			Voice:  "Puck",
			Family: "Other",
			Style:  "Recite with mastery, strictly following the Warsh 'an Nafi' recitation method. Use a powerful, resonant voice with a distinctive North African timbre and melodic flow. Ensure flawless and authentic Tajweed on every letter, including all rules of pronunciation, merging, and elongation: ",
		},
		{
			ID:     "charon-instructional",
			Name:   "Male: Instructional (For Tajweed Students)",
			Voice:  "Charon",
			Family: "Other",
			Style:  "Recite in a clear, instructional tone for teaching Tajweed. The pace should be moderate and deliberate. Use an authoritative yet encouraging male voice with a clear, higher-pitched tone. Articulate every letter and rule with exceptional clarity and textbook perfection, slightly emphasizing points of articulation for students to imitate: ",
		},
	}
}

// Get returns the reciter with exactly this ID.
func (c Catalog) Get(id string) (Reciter, bool) {
	for _, r := range c {
		if r.ID == id {
			return r, true
		}
	}
	return Reciter{}, false
}

// Find resolves a query to a reciter: an exact ID first, then the best fuzzy
// match against ID and display name.
func (c Catalog) Find(query string) (Reciter, error) {
	query = strings.TrimSpace(query)
	if r, ok := c.Get(strings.ToLower(query)); ok {
		return r, nil
	}
	if query == "" {
		return Reciter{}, ErrUnknownReciter
	}

	matches := fuzzy.FindFrom(query, catalogSource(c))
	if len(matches) == 0 {
		return Reciter{}, fmt.Errorf("%w: %q", ErrUnknownReciter, query)
	}
	return c[matches[0].Index], nil
}

// IDs returns the reciter IDs in catalog order.
func (c Catalog) IDs() []string {
	ids := make([]string, len(c))
	for i, r := range c {
		ids[i] = r.ID
	}
	return ids
}

type catalogSource Catalog

func (s catalogSource) String(i int) string {
	return s[i].ID + " " + s[i].Name
}

func (s catalogSource) Len() int {
	return len(s)
}
