package manifest

const redacted = "<redacted>"

// View is a printable summary of a resolved manifest. Environment-sourced
// values are never included, only the variable names they came from.
type View struct {
	Address    string       `json:"address"`
	TargetURL  string       `json:"target_url"`
	Topics     []TopicView  `json:"topics,omitempty"`
	TopicQuery string       `json:"topic_query,omitempty"`
	Headers    []HeaderView `json:"headers,omitempty"`
	Signature  string       `json:"signature"`
}

type TopicView struct {
	Topic string `json:"topic"`
	Key   string `json:"key"`
}

type HeaderView struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Value  string `json:"value,omitempty"`
}

// View summarizes m for display.
func (m *Manifest) View() View {
	v := View{
		Address:    m.Address,
		TargetURL:  m.DisplayURL,
		TopicQuery: m.TopicQuery,
		Signature:  "none",
	}

	for _, t := range m.Topics {
		v.Topics = append(v.Topics, TopicView{Topic: t, Key: Key(t)})
	}

	for _, h := range m.Headers {
		hv := HeaderView{Name: h.Name, Source: h.Source.Kind.String()}
		if h.Source.Kind == FromEnv {
			hv.Source += ":" + h.Source.Env
			hv.Value = redacted
		}
		v.Headers = append(v.Headers, hv)
	}

	switch {
	case m.Rehash.Required:
		v.Signature = m.Hash.Header + " (recomputed with " + m.Rehash.SecretEnv + ")"
	case m.Hash.Required:
		v.Signature = m.Hash.Header + " (passthrough)"
	}

	return v
}
