package assets

import "math/rand"

// SampleLibrary returns a small detective-story library useful for
// demos and tests.
func SampleLibrary(rng *rand.Rand) *Library {
	l := NewLibrary(rng)
	sample := []Asset{
		{ID: "char_detective", Name: "Detective Sara Chen", Type: TypeCharacter,
			Tags: []string{"protagonist", "investigator"},
			Metadata: map[string]string{"description": "A sharp-eyed detective with a habit of noticing what others miss"}},
		{ID: "char_witness", Name: "Marcus Webb", Type: TypeCharacter,
			Tags: []string{"witness", "nervous"},
			Metadata: map[string]string{"description": "A jittery witness who saw more than he admits"}},
		{ID: "char_suspect", Name: "Elena Voss", Type: TypeCharacter,
			Tags: []string{"suspect", "composed"},
			Metadata: map[string]string{"description": "An art dealer with an alibi that is a little too tidy"}},
		{ID: "loc_office", Name: "Rain-streaked Office", Type: TypeLocation,
			Tags: []string{"interior", "moody"},
			Metadata: map[string]string{"description": "A cramped office lit by a flickering desk lamp"}},
		{ID: "loc_alley", Name: "Back Alley", Type: TypeLocation,
			Tags: []string{"exterior", "dark"},
			Metadata: map[string]string{"description": "A narrow alley behind the gallery, slick with rain"}},
		{ID: "loc_gallery", Name: "Voss Gallery", Type: TypeLocation,
			Tags: []string{"interior", "upscale"},
			Metadata: map[string]string{"description": "A gallery whose white walls hide more than they show"}},
		{ID: "obj_letter", Name: "Unsigned Letter", Type: TypeObject,
			Tags: []string{"clue", "paper"},
			Metadata: map[string]string{"description": "A letter with no signature and a watermark worth tracing"}},
		{ID: "obj_watch", Name: "Stopped Pocket Watch", Type: TypeObject,
			Tags: []string{"clue", "timepiece"},
			Metadata: map[string]string{"description": "A pocket watch frozen at eleven minutes past two"}},
		{ID: "obj_key", Name: "Brass Key", Type: TypeObject,
			Tags: []string{"clue", "access"},
			Metadata: map[string]string{"description": "A brass key that fits no lock anyone will admit to owning"}},
	}
	for _, a := range sample {
		// ids and types are fixed above, Add cannot fail
		_ = l.Add(a)
	}
	return l
}
