// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. The `json:"..."` struct tags tell
// encoding/json how each field is named on the wire.
package model

import "time"

// Question is one practice problem in a user's revision set.
//
// Topic and Difficulty are stored as raw text so that imported or legacy values
// survive untouched. Code that counts or groups questions must go through
// ResolvedTopic / ResolvedDifficulty, which map the raw text onto the closed
// enumerations below.
type Question struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId,omitempty"`
	Question    string     `json:"question"`
	Link        string     `json:"link"`
	Topic       string     `json:"topic"`
	Difficulty  string     `json:"difficulty"`
	Source      *string    `json:"source"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastRevised *time.Time `json:"lastRevised"`
}

// ResolvedTopic returns the enumerated topic, or TopicOthers for free text.
func (q Question) ResolvedTopic() Topic {
	return ResolveTopic(q.Topic)
}

// ResolvedDifficulty returns the enumerated difficulty, defaulting to Medium.
func (q Question) ResolvedDifficulty() Difficulty {
	return ResolveDifficulty(q.Difficulty)
}

// Revised reports whether the question has ever been marked as reviewed.
func (q Question) Revised() bool {
	return q.LastRevised != nil
}

// Topic is the closed set of problem categories plus the Others overflow bucket.
type Topic string

const (
	TopicArray              Topic = "Array"
	TopicString             Topic = "String"
	TopicLinkedList         Topic = "Linked List"
	TopicStack              Topic = "Stack"
	TopicQueue              Topic = "Queue"
	TopicTree               Topic = "Tree"
	TopicGraph              Topic = "Graph"
	TopicDynamicProgramming Topic = "Dynamic Programming"
	TopicGreedy             Topic = "Greedy"
	TopicBacktracking       Topic = "Backtracking"
	TopicBinarySearch       Topic = "Binary Search"

	// TopicOthers collects every topic outside the fixed list.
	TopicOthers Topic = "Others"
)

// fixedTopics is ordered the way topics are presented everywhere.
var fixedTopics = []Topic{
	TopicArray,
	TopicString,
	TopicLinkedList,
	TopicStack,
	TopicQueue,
	TopicTree,
	TopicGraph,
	TopicDynamicProgramming,
	TopicGreedy,
	TopicBacktracking,
	TopicBinarySearch,
}

// FixedTopics returns a copy of the enumerated topics in display order.
// TopicOthers is not included.
func FixedTopics() []Topic {
	out := make([]Topic, len(fixedTopics))
	copy(out, fixedTopics)
	return out
}

// IsFixed reports whether t is one of the enumerated topics.
func (t Topic) IsFixed() bool {
	for _, f := range fixedTopics {
		if t == f {
			return true
		}
	}
	return false
}

// ResolveTopic maps raw topic text onto the enumeration. Matching is exact,
// so "array" is an Others topic just as it would be in the stored data.
func ResolveTopic(raw string) Topic {
	t := Topic(raw)
	if t.IsFixed() {
		return t
	}
	return TopicOthers
}

// Difficulty is one of Easy, Medium or Hard.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// DefaultDifficulty is used whenever a difficulty is absent or unrecognised.
const DefaultDifficulty = DifficultyMedium

// Difficulties returns the enumeration in rank order.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// ParseDifficulty returns the difficulty for an exact match and false otherwise.
func ParseDifficulty(raw string) (Difficulty, bool) {
	switch d := Difficulty(raw); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// ResolveDifficulty is ParseDifficulty with the Medium fallback applied.
func ResolveDifficulty(raw string) Difficulty {
	if d, ok := ParseDifficulty(raw); ok {
		return d
	}
	return DefaultDifficulty
}

// Rank orders difficulties Easy(0) < Medium(1) < Hard(2).
// Anything unrecognised ranks as Medium.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyHard:
		return 2
	default:
		return 1
	}
}
