package stream

import "slices"

// SubscriptionSet is the ordered set of topics believed subscribed.
// It is not safe for concurrent use; the session loop owns it.
type SubscriptionSet struct {
	topics []string
}

// NewSubscriptionSet returns a set holding topics, duplicates removed.
func NewSubscriptionSet(topics ...string) *SubscriptionSet {
	s := &SubscriptionSet{}
	s.Add(topics...)
	return s
}

// Add appends topics not yet present.
func (s *SubscriptionSet) Add(topics ...string) {
	for _, topic := range topics {
		if topic != "" && !slices.Contains(s.topics, topic) {
			s.topics = append(s.topics, topic)
		}
	}
}

// Remove drops topics, keeping the order of the rest.
func (s *SubscriptionSet) Remove(topics ...string) {
	s.topics = slices.DeleteFunc(s.topics, func(t string) bool {
		return slices.Contains(topics, t)
	})
}

// Replace sets the content to topics, as acknowledged by the server.
func (s *SubscriptionSet) Replace(topics []string) {
	s.topics = s.topics[:0]
	s.Add(topics...)
}

// Contains reports whether topic is in the set.
func (s *SubscriptionSet) Contains(topic string) bool {
	return slices.Contains(s.topics, topic)
}

// Topics returns a copy of the topics in order.
func (s *SubscriptionSet) Topics() []string {
	return slices.Clone(s.topics)
}

// Len returns the number of topics.
func (s *SubscriptionSet) Len() int {
	return len(s.topics)
}

// Reset empties the set.
func (s *SubscriptionSet) Reset() {
	s.topics = nil
}
