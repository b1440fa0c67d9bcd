package workflow

import (
	"fmt"
	"math/rand/v2"
)

type LoRA struct {
	Name          string
	StrengthModel float64
	StrengthClip  float64
}

// Params are the per-job values patched into a cloned template.
// Zero values leave the template's own value in place, except Seed.
type Params struct {
	PositiveText   string
	NegativeText   string
	Seed           uint64
	Width          int
	Height         int
	Checkpoint     string
	Denoise        float64
	LoRA           *LoRA
	ReferenceImage string
	FilenamePrefix string
}

// RandomSeed returns a seed in the range the sampler accepts.
func RandomSeed() uint64 {
	return rand.Uint64()
}

// Apply patches p into g by node role and returns the seed that was used.
func (g Graph) Apply(p Params) (uint64, error) {
	pos := g.Node(RolePositiveText)
	if pos == nil {
		return 0, fmt.Errorf("%w: no %s node", ErrInvalidGraph, RolePositiveText)
	}
	setText(pos, p.PositiveText)

	if neg := g.Node(RoleNegativeText); neg != nil {
		setText(neg, p.NegativeText)
	}

	sampler := g.Node(RoleSampler)
	if sampler == nil {
		return 0, fmt.Errorf("%w: no %s node", ErrInvalidGraph, RoleSampler)
	}
	seed := p.Seed
	if seed == 0 {
		seed = RandomSeed()
	}
	if _, ok := sampler.Inputs["noise_seed"]; ok {
		sampler.Inputs["noise_seed"] = seed
	} else {
		sampler.Inputs["seed"] = seed
	}
	if p.Denoise > 0 {
		sampler.Inputs["denoise"] = p.Denoise
	}

	if latent := g.Node(RoleLatent); latent != nil {
		if p.Width > 0 {
			latent.Inputs["width"] = p.Width
		}
		if p.Height > 0 {
			latent.Inputs["height"] = p.Height
		}
	}

	if p.Checkpoint != "" {
		if ckpt := g.Node(RoleCheckpoint); ckpt != nil {
			ckpt.Inputs["ckpt_name"] = p.Checkpoint
		}
	}

	if p.LoRA != nil {
		if lora := g.Node(RoleLoRA); lora != nil {
			lora.Inputs["lora_name"] = p.LoRA.Name
			lora.Inputs["strength_model"] = p.LoRA.StrengthModel
			lora.Inputs["strength_clip"] = p.LoRA.StrengthClip
		}
	}

	if p.ReferenceImage != "" {
		loader := g.Node(RoleReferenceImage)
		if loader == nil {
			return 0, fmt.Errorf("%w: no %s node for reference image", ErrInvalidGraph, RoleReferenceImage)
		}
		loader.Inputs["image"] = p.ReferenceImage
	}

	if p.FilenamePrefix != "" {
		if out := g.Node(RoleOutput); out != nil {
			out.Inputs["filename_prefix"] = p.FilenamePrefix
		}
	}
	return seed, nil
}

// setText writes the prompt into whichever text input the encoder exposes.
func setText(n *Node, text string) {
	if _, ok := n.Inputs["user_prompt"]; ok {
		n.Inputs["user_prompt"] = text
		return
	}
	n.Inputs["text"] = text
}
