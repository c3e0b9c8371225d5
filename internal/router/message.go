package router

import "encoding/json"

// Message is the slash-command envelope arriving on the command channel.
// Params is a flat string mapping; the action parameter selects the
// sub-operation under the verb.
type Message struct {
	Verb      string            `json:"verb"`
	Params    map[string]string `json:"params"`
	Content   string            `json:"content,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	AgentID   string            `json:"agent_id,omitempty"`
}

func parseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Params == nil {
		msg.Params = map[string]string{}
	}
	return &msg, nil
}

// param returns the first non-empty value among the named params.
func (m *Message) param(names ...string) string {
	for _, name := range names {
		if v := m.Params[name]; v != "" {
			return v
		}
	}
	return ""
}
