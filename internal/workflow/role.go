package workflow

import "strings"

// Role is the semantic purpose of a node, independent of its id.
type Role string

const (
	RoleCheckpoint     Role = "checkpoint"
	RolePositiveText   Role = "positive_text"
	RoleNegativeText   Role = "negative_text"
	RoleLatent         Role = "latent"
	RoleSampler        Role = "sampler"
	RoleDecoder        Role = "decoder"
	RoleOutput         Role = "output"
	RoleReferenceImage Role = "reference_image"
	RoleLoRA           Role = "lora"
)

var classRoles = map[string]Role{
	"CheckpointLoaderSimple": RoleCheckpoint,
	"EmptyLatentImage":       RoleLatent,
	"VAEDecode":              RoleDecoder,
	"SaveImage":              RoleOutput,
	"LoadImage":              RoleReferenceImage,
	"LoraLoader":             RoleLoRA,
}

// Find returns the id of the node playing role. A node that declares the
// role in _meta wins; otherwise the role is inferred from class types and
// from the sampler's conditioning inputs.
func (g Graph) Find(role Role) (string, bool) {
	ids := g.IDs()
	for _, id := range ids {
		if g[id].Meta.Role == role {
			return id, true
		}
	}

	switch role {
	case RoleSampler:
		for _, id := range ids {
			if strings.HasPrefix(g[id].ClassType, "KSampler") {
				return id, true
			}
		}
		return "", false
	case RolePositiveText, RoleNegativeText:
		sampler, ok := g.Find(RoleSampler)
		if !ok {
			return "", false
		}
		input := "positive"
		if role == RoleNegativeText {
			input = "negative"
		}
		ref, ok := g[sampler].Inputs[input].(Ref)
		if !ok {
			return "", false
		}
		if _, exists := g[ref.NodeID]; !exists {
			return "", false
		}
		return ref.NodeID, true
	}

	for _, id := range ids {
		if g[id].Meta.Role == "" && classRoles[g[id].ClassType] == role {
			return id, true
		}
	}
	return "", false
}

// Node returns the node playing role, or nil.
func (g Graph) Node(role Role) *Node {
	id, ok := g.Find(role)
	if !ok {
		return nil
	}
	return g[id]
}
