package dialogue

import "fmt"

// Topic is one of the fixed conversation subjects a session can be
// opened on. Chosen once, immutable for the session.
type Topic string

const (
	TopicClimateChange    Topic = "Climate Change"
	TopicImmigration      Topic = "Immigration"
	TopicWealthInequality Topic = "Wealth Inequality"
	TopicReligion         Topic = "Religion in Public Life"
	TopicPolicing         Topic = "Policing and Justice"
	TopicAI               Topic = "Artificial Intelligence"
)

var topicCatalog = []Topic{
	TopicClimateChange,
	TopicImmigration,
	TopicWealthInequality,
	TopicReligion,
	TopicPolicing,
	TopicAI,
}

// Topics returns the full ordered topic catalog.
func Topics() []Topic {
	out := make([]Topic, len(topicCatalog))
	copy(out, topicCatalog)
	return out
}

// ParseTopic validates a raw topic string against the catalog.
func ParseTopic(s string) (Topic, error) {
	for _, t := range topicCatalog {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTopic, s)
}
