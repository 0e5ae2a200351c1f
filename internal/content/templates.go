package content

import (
	"fmt"

	"github.com/xaenox/outreach-router/internal/models"
)

const baseInstruction = "Based on the following context, generate content. Return JSON with keys: 'headline', 'body', 'cta'."

const systemPrompt = "You are a professional content creator. Return ONLY valid JSON matching the requested structure."

var guidance = map[models.Channel]string{
	models.ChannelLinkedIn: "Platform: LinkedIn. Focus on professional networking and industry insights. Keep the body under 1300 characters.",
	models.ChannelEmail:    "Platform: Email. Use a professional yet personal tone with a clear subject line (headline).",
	models.ChannelSMS:      "Platform: SMS. Be extremely concise and urgent. The body must fit in 160 characters.",
	models.ChannelCall:     "Platform: Call. Write a script for a cold call or follow-up: opener, value statement, answers to likely objections, and a closing ask.",
}

const genericGuidance = "Platform: %s. Write clear, professional outreach copy."

// BuildPrompt renders the user prompt for platform.
func BuildPrompt(platform models.Channel, brief string) string {
	g, ok := guidance[platform]
	if !ok {
		g = fmt.Sprintf(genericGuidance, platform)
	}
	return fmt.Sprintf("%s\n%s\n\nContext: %s", baseInstruction, g, brief)
}

// DefaultTemperatures are the sampling temperatures used when a caller does not pass one.
func DefaultTemperatures() map[models.Channel]float64 {
	return map[models.Channel]float64{
		models.ChannelLinkedIn: 0.85,
		models.ChannelEmail:    0.7,
		models.ChannelSMS:      0.4,
		models.ChannelCall:     0.5,
	}
}

const genericTemperature = 0.7

// FallbackArtifact is the canned copy used when generation is exhausted.
func FallbackArtifact(platform models.Channel, audience, category string) models.ContentArtifact {
	return models.ContentArtifact{
		Headline: "Follow-up Inquiry",
		Body:     fmt.Sprintf("Hello %s, I wanted to follow up on your recent interest regarding %s.", audience, category),
		CTA:      "Let's connect",
		Platform: platform,
	}
}
