package comfy

import (
	"encoding/json"
	"sort"
)

// Artifact identifies one output file on the backend.
type Artifact struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type NodeOutput struct {
	Images []Artifact `json:"images"`
}

type RecordStatus struct {
	StatusStr string            `json:"status_str"`
	Completed bool              `json:"completed"`
	Messages  []json.RawMessage `json:"messages"`
}

// Record is the execution history entry for one submitted graph.
type Record struct {
	Outputs map[string]NodeOutput `json:"outputs"`
	Status  RecordStatus          `json:"status"`
}

// Artifacts lists saved images (type "output"). Images from preferNode come
// first; the remaining nodes follow in id order.
func (r *Record) Artifacts(preferNode string) []Artifact {
	if r == nil {
		return nil
	}
	var out []Artifact
	collect := func(o NodeOutput) {
		for _, a := range o.Images {
			if a.Type == "output" && a.Filename != "" {
				out = append(out, a)
			}
		}
	}
	if o, ok := r.Outputs[preferNode]; ok {
		collect(o)
	}
	ids := make([]string, 0, len(r.Outputs))
	for id := range r.Outputs {
		if id != preferNode {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		collect(r.Outputs[id])
	}
	return out
}

// Failed reports an execution error recorded by the backend.
func (r *Record) Failed() bool {
	return r != nil && r.Status.StatusStr == "error"
}

// ErrorMessage extracts the exception message of an execution_error event.
func (r *Record) ErrorMessage() string {
	if r == nil {
		return ""
	}
	for _, raw := range r.Status.Messages {
		var ev []json.RawMessage
		if err := json.Unmarshal(raw, &ev); err != nil || len(ev) != 2 {
			continue
		}
		var name string
		if json.Unmarshal(ev[0], &name) != nil || name != "execution_error" {
			continue
		}
		var body struct {
			NodeType         string `json:"node_type"`
			ExceptionMessage string `json:"exception_message"`
		}
		if json.Unmarshal(ev[1], &body) == nil {
			if body.NodeType != "" {
				return body.NodeType + ": " + body.ExceptionMessage
			}
			return body.ExceptionMessage
		}
	}
	return "execution error"
}
