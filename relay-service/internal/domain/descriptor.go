package domain

// Descriptor is the document panels poll to find the relay.
type Descriptor struct {
	URL string `json:"url"`
}
