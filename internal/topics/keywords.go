package topics

// Keyword is one row of the keyword table: a top word of a topic, its weight
// in that topic and its total count in the corpus.
type Keyword struct {
	Word       string  `json:"word" yaml:"word"`
	TopicID    int     `json:"topic_id" yaml:"topic_id"`
	Importance float64 `json:"importance" yaml:"importance"`
	WordCount  int     `json:"word_count" yaml:"word_count"`
}

// Keywords flattens the n top words of every topic into table rows, ordered
// by topic then rank.
func Keywords(m *Model, n int) []Keyword {
	var rows []Keyword
	for _, t := range m.Topics(n) {
		for _, ww := range t.Words {
			count := 0
			if id, ok := m.dict.ID(ww.Word); ok {
				count = m.dict.Count(id)
			}
			rows = append(rows, Keyword{
				Word:       ww.Word,
				TopicID:    t.ID,
				Importance: ww.Weight,
				WordCount:  count,
			})
		}
	}
	return rows
}

// ByTopic groups keyword rows by topic id.
func ByTopic(rows []Keyword) map[int][]Keyword {
	out := make(map[int][]Keyword)
	for _, r := range rows {
		out[r.TopicID] = append(out[r.TopicID], r)
	}
	return out
}
