package generate

import (
	"bytes"
	"encoding/json"

	"github.com/kalambet/genreach/internal/profile"
)

const defaultIntent = "Polite intro with value and a soft ask to connect"

const systemPrompt = "Write one LinkedIn outreach message (180–300 characters), friendly and specific." +
	" Use ONLY provided data; do not assume facts about sender or recipient." +
	" Prioritize the most impressive/relevant achievement or experience (from experiences, awards, or recent posts)." +
	" If numbers or measurable outcomes are present, include one." +
	" Avoid salesy language, emojis, hashtags, bullet points, or placeholders." +
	" If a first name is present, use it; otherwise omit." +
	" End with a low‑friction question that proposes a concrete next step (e.g., a quick 10–15 min chat next week, or permission to share a 2‑line idea)." +
	" Do NOT ask open‑ended questions that put the burden on them (e.g., 'What would you like to discuss?' or 'What works for you?')." +
	" Output plain text only (no surrounding quotes or code blocks)."

const instruction = "Generate one friendly, personalized LinkedIn message (180–300 chars). Use ONLY facts below; if unknown, omit." +
	" Highlight the most impressive/relevant achievement or experience (or recent post) and weave one concrete detail." +
	" Prefer measurable outcomes if present. If the intent provides a specific CTA, use it; otherwise propose a concrete, low‑friction next step (e.g., 10–15 min chat next week or permission to send a 2‑line idea)." +
	" Avoid open‑ended questions like 'What would you like to discuss?'. Do not wrap the message in quotes."

// SystemPrompt is the system message sent to the model.
func SystemPrompt() string { return systemPrompt }

type userPayload struct {
	Instruction string `json:"instruction"`
	Intent      string `json:"intent"`
	Profile     struct {
		ProfileInfo     profile.Info     `json:"profileInfo"`
		ExtendedProfile profile.Extended `json:"extendedProfile"`
	} `json:"profile"`
}

// UserContent renders req as the user message: a short lead-in followed by
// compact JSON with the instruction, intent and profile.
func UserContent(req Request) string {
	p := userPayload{Instruction: instruction, Intent: req.Intent}
	if p.Intent == "" {
		p.Intent = defaultIntent
	}
	p.Profile.ProfileInfo = req.ProfileInfo
	p.Profile.ExtendedProfile = req.ExtendedProfile
	p.Profile.ExtendedProfile.Normalize()

	var buf bytes.Buffer
	buf.WriteString("Please generate a concise, friendly, highly personalized LinkedIn message based on the following JSON.\n")
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(p)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
