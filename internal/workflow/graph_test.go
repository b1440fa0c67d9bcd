package workflow_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docent-service/internal/workflow"
)

func TestParseGraph_References(t *testing.T) {
	g, err := workflow.ParseGraph([]byte(minimalGraph))
	require.NoError(t, err)

	ref, ok := g["2"].Inputs["positive"].(workflow.Ref)
	require.True(t, ok)
	assert.Equal(t, workflow.Ref{NodeID: "1", Slot: 0}, ref)

	seed, ok := g["2"].Inputs["seed"].(json.Number)
	require.True(t, ok)
	assert.Equal(t, "1", seed.String())
}

func TestGraph_MarshalKeepsWireFormat(t *testing.T) {
	g, err := workflow.ParseGraph([]byte(minimalGraph))
	require.NoError(t, err)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var raw map[string]struct {
		ClassType string         `json:"class_type"`
		Inputs    map[string]any `json:"inputs"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{"1", float64(0)}, raw["2"].Inputs["positive"])
	assert.Equal(t, "KSampler", raw["2"].ClassType)
}

func TestGraph_FindInfersRoles(t *testing.T) {
	g, err := workflow.ParseGraph([]byte(`{
	  "10": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "a.safetensors"}},
	  "11": {"class_type": "CLIPTextEncode", "inputs": {"text": "", "clip": ["10", 1]}},
	  "12": {"class_type": "CLIPTextEncode", "inputs": {"text": "", "clip": ["10", 1]}},
	  "13": {"class_type": "EmptyLatentImage", "inputs": {"width": 512, "height": 512}},
	  "14": {"class_type": "KSamplerAdvanced", "inputs": {"noise_seed": 0, "positive": ["12", 0], "negative": ["11", 0], "latent_image": ["13", 0]}},
	  "15": {"class_type": "VAEDecode", "inputs": {"samples": ["14", 0]}},
	  "16": {"class_type": "SaveImage", "inputs": {"images": ["15", 0]}}
	}`))
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	want := map[workflow.Role]string{
		workflow.RoleCheckpoint:   "10",
		workflow.RolePositiveText: "12",
		workflow.RoleNegativeText: "11",
		workflow.RoleLatent:       "13",
		workflow.RoleSampler:      "14",
		workflow.RoleDecoder:      "15",
		workflow.RoleOutput:       "16",
	}
	for role, id := range want {
		got, ok := g.Find(role)
		assert.True(t, ok, role)
		assert.Equal(t, id, got, role)
	}

	_, ok := g.Find(workflow.RoleLoRA)
	assert.False(t, ok)
}

func TestGraph_ExplicitRoleWins(t *testing.T) {
	g, err := workflow.ParseGraph([]byte(`{
	  "1": {"class_type": "CLIPTextEncode", "inputs": {"text": ""}},
	  "2": {"class_type": "Lumina2TextEncode", "inputs": {"user_prompt": ""}, "_meta": {"role": "positive_text"}},
	  "3": {"class_type": "KSampler", "inputs": {"positive": ["1", 0]}},
	  "4": {"class_type": "SaveImage", "inputs": {"images": ["3", 0]}}
	}`))
	require.NoError(t, err)

	id, ok := g.Find(workflow.RolePositiveText)
	require.True(t, ok)
	assert.Equal(t, "2", id)

	_, err = g.Apply(workflow.Params{PositiveText: "a lighthouse", Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, "a lighthouse", g["2"].Inputs["user_prompt"])
	assert.NotContains(t, g["2"].Inputs, "text")
}

func TestGraph_ValidateRejectsUnreachableOutput(t *testing.T) {
	g, err := workflow.ParseGraph([]byte(`{
	  "1": {"class_type": "CLIPTextEncode", "inputs": {"text": ""}},
	  "2": {"class_type": "KSampler", "inputs": {"positive": ["1", 0]}},
	  "3": {"class_type": "LoadImage", "inputs": {"image": "x.png"}},
	  "4": {"class_type": "SaveImage", "inputs": {"images": ["3", 0]}}
	}`))
	require.NoError(t, err)

	err = g.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrInvalidGraph))
}

func TestGraph_Apply(t *testing.T) {
	store, err := workflow.NewStore()
	require.NoError(t, err)
	g, err := store.Get(workflow.KindImageToImage)
	require.NoError(t, err)

	seed, err := g.Apply(workflow.Params{
		PositiveText:   "a red car",
		NegativeText:   "blurry",
		Seed:           42,
		Width:          768,
		Height:         512,
		Checkpoint:     "custom.safetensors",
		Denoise:        0.6,
		ReferenceImage: "upload_1.png",
		FilenamePrefix: "job_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seed)

	assert.Equal(t, "a red car", g.Node(workflow.RolePositiveText).Inputs["text"])
	assert.Equal(t, "blurry", g.Node(workflow.RoleNegativeText).Inputs["text"])
	assert.Equal(t, uint64(42), g.Node(workflow.RoleSampler).Inputs["seed"])
	assert.Equal(t, 0.6, g.Node(workflow.RoleSampler).Inputs["denoise"])
	assert.Equal(t, 768, g.Node(workflow.RoleLatent).Inputs["width"])
	assert.Equal(t, 512, g.Node(workflow.RoleLatent).Inputs["height"])
	assert.Equal(t, "custom.safetensors", g.Node(workflow.RoleCheckpoint).Inputs["ckpt_name"])
	assert.Equal(t, "upload_1.png", g.Node(workflow.RoleReferenceImage).Inputs["image"])
	assert.Equal(t, "job_abc", g.Node(workflow.RoleOutput).Inputs["filename_prefix"])
}

func TestGraph_ApplyRandomSeedWhenZero(t *testing.T) {
	g, err := workflow.ParseGraph([]byte(minimalGraph))
	require.NoError(t, err)

	seed, err := g.Apply(workflow.Params{PositiveText: "x"})
	require.NoError(t, err)
	assert.Equal(t, seed, g.Node(workflow.RoleSampler).Inputs["seed"])
}

func TestGraph_ApplyReferenceImageWithoutLoader(t *testing.T) {
	g, err := workflow.ParseGraph([]byte(minimalGraph))
	require.NoError(t, err)

	_, err = g.Apply(workflow.Params{PositiveText: "x", ReferenceImage: "a.png"})
	assert.True(t, errors.Is(err, workflow.ErrInvalidGraph))
}
