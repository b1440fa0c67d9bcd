// Package prompt turns user text and category tags into the positive and
// negative prompt strings injected into a workflow graph.
package prompt

import "strings"

const sep = ", "

type Composition struct {
	Positive string
	Negative string
	// Unknown lists tags found in neither vocabulary, in input order.
	Unknown []string
}

type Composer struct {
	positive Vocabulary
	negative Vocabulary
	baseline string
}

func NewComposer() *Composer {
	return NewComposerWith(DefaultPositive, DefaultNegative, BaselineNegative)
}

func NewComposerWith(positive, negative Vocabulary, baseline string) *Composer {
	return &Composer{positive: positive, negative: negative, baseline: baseline}
}

// Compose is deterministic and performs no I/O. Unknown tags never fail
// composition; they are reported in Composition.Unknown.
func (c *Composer) Compose(userText, userNegative string, positiveTags, negativeTags []string) Composition {
	var out Composition

	parts := make([]string, 0, len(positiveTags)+1)
	if t := strings.TrimSpace(userText); t != "" {
		parts = append(parts, t)
	}
	for _, tag := range positiveTags {
		frag, ok := c.positive[tag]
		if !ok {
			out.Unknown = append(out.Unknown, tag)
			continue
		}
		parts = append(parts, frag)
	}
	out.Positive = strings.Join(parts, sep)

	seen := make(map[string]bool, len(negativeTags)+2)
	neg := make([]string, 0, len(negativeTags)+2)
	add := func(frag string) {
		frag = strings.TrimSpace(frag)
		if frag == "" || seen[frag] {
			return
		}
		seen[frag] = true
		neg = append(neg, frag)
	}
	add(c.baseline)
	add(userNegative)
	for _, tag := range negativeTags {
		frag, ok := c.negative[tag]
		if !ok {
			out.Unknown = append(out.Unknown, tag)
			continue
		}
		add(frag)
	}
	out.Negative = strings.Join(neg, sep)
	return out
}

// SplitTags accepts repeated form values as well as comma-separated lists.
func SplitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
