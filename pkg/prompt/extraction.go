package prompt

import (
	"strings"
)

// DefaultTypes are requested when the caller names no entity types.
var DefaultTypes = []string{"character", "location", "item", "event"}

// BuildExtraction renders the request asking a model to return the story's
// entities as a {name: {type, desc}} JSON object. The story is embedded
// verbatim at the end.
func BuildExtraction(story string, types []string) string {
	if len(types) == 0 {
		types = DefaultTypes
	}
	typesList := strings.Join(types, ", ")

	var sb strings.Builder
	sb.WriteString("Analyze the following story and extract all " + typesList + ".\n\n")
	sb.WriteString(extractionFormat)
	sb.WriteString("Rules:\n")
	sb.WriteString("- Use the actual name as the key\n")
	sb.WriteString("- \"type\" should be one of: " + typesList + "\n")
	sb.WriteString("- \"desc\" should be a summarized narrative of EVERYTHING related to the entity:\n\n")
	sb.WriteString(extractionCategories)
	sb.WriteString("- Write descriptions as flowing narrative paragraphs, not bullet points\n")
	sb.WriteString("- Include ALL details mentioned in the story about each entity\n")
	sb.WriteString("- If information is not provided in the story, do not invent it\n")
	sb.WriteString("- Extract ALL relevant " + typesList + " mentioned in the story\n")
	sb.WriteString("- Do not include any markdown formatting, only return valid JSON\n\n")
	sb.WriteString(extractionLanguage)
	sb.WriteString("Story:\n")
	sb.WriteString(story)
	return sb.String()
}

const extractionFormat = `Return the data as a JSON object with this exact format:
{
  "Name of Entity": {"type": "category", "desc": "Summarized narrative description"},
  "Another Entity": {"type": "category", "desc": "Summarized narrative description"}
}

`

const extractionCategories = `  For CHARACTERS/PERSONS:
  - Physical appearance (face, hair, eyes, body type, height, distinguishing features)
  - Clothing and accessories typically worn
  - Personality traits and temperament
  - Background and history
  - Objectives, goals, and motivations
  - Relationships with other characters
  - Skills, abilities, or powers
  - Current status or situation

  For LOCATIONS/PLACES:
  - Where it is located (geography, region, relative position)
  - What it looks like (architecture, landscape, atmosphere, colors, lighting)
  - What it is used for (purpose, function)
  - Who owns or controls it
  - Notable features or landmarks within
  - History or significance
  - Current condition or state
  - Mood or feeling it evokes

  For ITEMS/OBJECTS:
  - What it is (type of object)
  - What it looks like (size, shape, color, material, markings)
  - What makes it special or unique
  - What it does or how it functions
  - Who owns or created it
  - History or origin
  - Current location or status

  For EVENTS:
  - What happened
  - When and where it occurred
  - Who was involved
  - Why it happened (causes)
  - What were the consequences
  - Significance to the story

`

const extractionLanguage = `IMPORTANT: Output MUST be in the SAME LANGUAGE as the input story.
If the story is in Thai, output in Thai.
If the story is in Japanese, output in Japanese.
If the story is in English, output in English.
Match the language of the story exactly.

`
