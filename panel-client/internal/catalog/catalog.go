// Package catalog is the static table of actions the panel offers.
package catalog

// Item is one triggerable action.
type Item struct {
	ID    string
	Label string
}

// Category groups related actions under one panel tab.
type Category struct {
	Key   string
	Title string
	Items []Item
}

var categories = []Category{
	{
		Key:   "BINGO",
		Title: "Bingo Thingy",
		Items: []Item{
			{ID: "BINGO_NEW", Label: "New Card"},
			{ID: "BINGO_CALL", Label: "Call Number"},
			{ID: "BINGO_CLEAR", Label: "Clear Board"},
		},
	},
	{
		Key:   "SOUND",
		Title: "Sound Thingy",
		Items: []Item{
			{ID: "BONK", Label: "BONK"},
			{ID: "SEXY_SAX", Label: "Sexy Sax"},
			{ID: "HOW_RUDE", Label: "How Rude!"},
			{ID: "DUNDUN", Label: "Dun Dun Duuun"},
			{ID: "CANTINA", Label: "Cantina Band"},
			{ID: "RIMSHOT", Label: "Joke Drum"},
		},
	},
	{
		Key:   "DRIVEBY",
		Title: "DriveBy Thingy",
		Items: []Item{
			{ID: "SIREN", Label: "Siren"},
			{ID: "HONK", Label: "Honk"},
			{ID: "ZOOM", Label: "Zoom Past"},
		},
	},
	{
		Key:   "TRIVIA",
		Title: "Trivia Thingy",
		Items: []Item{
			{ID: "TRIVIA_START", Label: "Start Trivia"},
			{ID: "TRIVIA_HINT", Label: "Hint"},
			{ID: "TRIVIA_REVEAL", Label: "Reveal Answer"},
		},
	},
}

var byID = func() map[string]Item {
	m := make(map[string]Item)
	for _, c := range categories {
		for _, it := range c.Items {
			m[it.ID] = it
		}
	}
	return m
}()

// Categories returns a copy of the catalog in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		c.Items = append([]Item(nil), c.Items...)
		out[i] = c
	}
	return out
}

// Lookup finds an action by id.
func Lookup(id string) (Item, bool) {
	it, ok := byID[id]
	return it, ok
}

// Label returns the display label for id, or id itself when unknown.
func Label(id string) string {
	if it, ok := byID[id]; ok {
		return it.Label
	}
	return id
}
