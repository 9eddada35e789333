package query

import (
	"bytes"
	"encoding/json"

	"github.com/sakif/revision-tracker/internal/model"
)

// Group is one topic bucket.
type Group struct {
	Topic     model.Topic
	Questions []model.Question
}

// Groups is an ordered topic → questions mapping. Order follows
// model.FixedTopics, with the Others bucket last when present.
type Groups []Group

// GroupByTopic partitions questions by resolved topic.
//
// Every fixed topic is present, possibly with no questions. The Others bucket
// exists only when at least one question has a topic outside the fixed list.
// Input order is preserved inside each bucket.
func GroupByTopic(questions []model.Question) Groups {
	fixed := model.FixedTopics()
	groups := make(Groups, len(fixed))
	index := make(map[model.Topic]int, len(fixed))
	for i, t := range fixed {
		groups[i] = Group{Topic: t, Questions: []model.Question{}}
		index[t] = i
	}

	var others []model.Question
	for _, q := range questions {
		t := q.ResolvedTopic()
		if t == model.TopicOthers {
			others = append(others, q)
			continue
		}
		i := index[t]
		groups[i].Questions = append(groups[i].Questions, q)
	}

	if len(others) > 0 {
		groups = append(groups, Group{Topic: model.TopicOthers, Questions: others})
	}
	return groups
}

// Get returns the bucket for topic.
func (g Groups) Get(topic model.Topic) ([]model.Question, bool) {
	for _, grp := range g {
		if grp.Topic == topic {
			return grp.Questions, true
		}
	}
	return nil, false
}

// Topics lists the bucket keys in order.
func (g Groups) Topics() []model.Topic {
	out := make([]model.Topic, len(g))
	for i, grp := range g {
		out[i] = grp.Topic
	}
	return out
}

// MarshalJSON writes the groups as a JSON object, keeping bucket order.
// A plain map would be emitted with sorted keys.
func (g Groups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, grp := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(grp.Topic))
		if err != nil {
			return nil, err
		}
		questions := grp.Questions
		if questions == nil {
			questions = []model.Question{}
		}
		val, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
