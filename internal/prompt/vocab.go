package prompt

// BaselineNegative leads every negative prompt.
const BaselineNegative = "low quality, bad quality, worst quality, jpeg artifacts, blurry, noisy, grainy, deformed, distorted"

// Vocabulary maps a category tag to the prompt fragment it contributes.
type Vocabulary map[string]string

var DefaultPositive = Vocabulary{
	"high_quality":       "masterpiece, best quality, highly detailed, sharp focus",
	"photorealistic":     "photorealistic, realistic lighting, detailed texture, 8k photo",
	"cinematic":          "cinematic lighting, dramatic composition, film grain, depth of field",
	"soft_light":         "soft natural light, gentle shadows, warm tones",
	"vivid_colors":       "vivid colors, rich saturation, high contrast",
	"portrait":           "portrait, centered subject, expressive face, detailed eyes",
	"landscape":          "wide landscape, atmospheric perspective, expansive sky",
	"impressionist":      "impressionist painting, visible brushstrokes, dappled light, en plein air",
	"cubist":             "cubist style, fragmented geometric forms, multiple viewpoints",
	"surrealist":         "surrealist art, dreamlike scene, impossible juxtaposition",
	"pop_art":            "pop art, bold flat colors, halftone dots, thick outlines",
	"minimalist":         "minimalist composition, negative space, simple shapes",
	"digital_art":        "digital art, clean rendering, concept art",
	"ink_wash":           "East Asian ink wash painting, monochrome ink, flowing brushwork, empty space",
	"color_painting":     "traditional Korean color painting, mineral pigments, fine outlines",
	"ukiyo_e":            "ukiyo-e woodblock print, flat color areas, bold outlines, Edo period",
	"nihonga":            "nihonga painting, mineral pigments on silk, delicate gradients",
	"gongbi":             "gongbi painting, meticulous brushwork, fine detailed lines",
	"xieyi":              "xieyi painting, freehand expressive brushwork, spontaneous strokes",
	"watercolor":         "watercolor painting, soft washes, paper texture",
	"oil_painting":       "oil painting, thick impasto, canvas texture",
	"3d_render":          "3d render, volumetric lighting, global illumination",
	"keep_composition":   "same composition as reference, faithful layout, consistent framing",
	"keep_facial_traits": "preserve facial features, consistent identity, natural skin tone",
}

var DefaultNegative = Vocabulary{
	"bad_quality":          BaselineNegative,
	"bad_anatomy":          "bad anatomy, extra limbs, missing limbs, malformed, mutated, ugly, disfigured, bad hands, extra fingers, fused fingers",
	"text_watermark":       "text, watermark, signature, logo, writing, words, numbers, brand",
	"nsfw":                 "nude, naked, explicit, sexual, porn, gore, violence, blood, disgusting",
	"person":               "person, people, human, man, woman, boy, girl, child, face, body, hands, feet, multiple people",
	"animal":               "animal, pet, dog, cat, bird, fish, wild animal, multiple animals",
	"plant":                "plant, flower, tree, bush, leaf, grass, multiple plants",
	"landscape":            "landscape, outdoor, nature, mountain, sky, water, city, building, urban, rural",
	"abstract":             "abstract, surreal, non-representational, conceptual, blurry background",
	"2d_feel":              "flat, cartoon, illustration, drawing, sketch, anime, comic, graphic",
	"3d_feel":              "2d, painting, art, abstract, hand-drawn, unrealistic",
	"bad_resolution":       "low resolution, pixelated, blurry, jagged edges",
	"too_many_objects":     "too many, multiple, cluttered, crowded, chaotic, busy",
	"too_few_objects":      "too few, sparse, empty, lonely",
	"unwanted_realism":     "photorealistic, hyperrealistic, realistic, naturalistic, real photo, 3D, CGI, render, detailed skin texture, pores, wrinkles, realistic hair",
	"unwanted_stylization": "cartoon, anime, comic, illustration, painting, drawing, abstract, stylized, fantastical, whimsical, exaggerated features, flat colors, simplified forms, brushstrokes, watercolor bleed, pixelated",
	"unnatural_colors":     "dull colors, desaturated, monochrome, grayscale, unnatural color palette, oversaturated, undersaturated, muted colors",
	"poor_composition":     "awkward composition, bad composition, cluttered, unbalanced, distracting elements, poorly framed, chaotic layout",
	"lack_of_detail":       "low detail, simple, plain, generic, undetailed",
	"excessive_detail":     "overly detailed, busy, cluttered, too much detail",
	"static_pose":          "static pose, stiff, unnatural pose, rigid",
	"anti_impressionist":   "sharp lines, crisp details, solid forms, static composition, dark shadows",
	"anti_cubist":          "smooth forms, natural perspective, realistic proportions, continuous lines",
	"anti_surrealist":      "logical, realistic, rational, mundane, everyday objects in normal context",
	"anti_pop_art":         "subtle colors, painterly, traditional art, complex textures, fine art",
	"anti_minimalist":      "complex, busy, decorative, elaborate, highly detailed, cluttered",
	"anti_ink_wash":        "vibrant colors, excessive detail, photorealistic, Western art style, complex composition, harsh lines, strong contrast",
	"anti_ukiyo_e":         "realistic, 3D, complex shading, subtle colors, Western art style, modern digital art, soft lines, detailed textures",
	"distorted_pose":       "distorted pose, unnatural pose, mutated limbs, twisted posture, changed body language, incorrect stance, altered pose",
	"distorted_form":       "distorted form, warped shape, altered silhouette, changed outline, unrecognizable object, blurred form, melted, deformed",
	"lack_of_3d_depth":     "flat, 2D, no depth, paper-thin, lacking volume, shallow perspective, poor dimensionality, weak shadows, no sense of mass",
}
