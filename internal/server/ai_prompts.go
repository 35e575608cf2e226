package server

import (
	"fmt"
	"math/rand"
	"strings"
)

const (
	twistTypeEnvironmental = "environmental"
	twistTypeCharacter     = "character"
	twistTypeGenreShift    = "genre-shift"
	twistTypeAbsurdist     = "absurdist"
	twistTypeMeta          = "meta"
	twistTypeObject        = "object"
	twistTypeTemporal      = "temporal"
	twistTypeDialogue      = "dialogue"
	twistTypeRandom        = "random"
)

var twistDescriptions = map[string]string{
	twistTypeEnvironmental: "Changes to the environment, setting, or physical laws (gravity, weather, space)",
	twistTypeCharacter:     "Reveals about characters, sudden transformations, or internal thoughts becoming external",
	twistTypeGenreShift:    "The story genre suddenly changes (becomes a musical, horror, documentary, etc.)",
	twistTypeAbsurdist:     "Completely surreal, nonsensical events that defy logic but are hilarious",
	twistTypeMeta:          "Breaking the fourth wall, characters aware they're in a story, narrative commentary",
	twistTypeObject:        "Inanimate objects gain sentience, unusual properties, or start behaving strangely",
	twistTypeTemporal:      "Time behaves strangely (loops, reverses, speeds up for some things but not others)",
	twistTypeDialogue:      "Communication breaks down in unexpected ways (autocorrect, translations, mind-reading)",
	twistTypeRandom:        "Pick whichever twist type would be funniest given the current story",
}

const twistSystemPrompt = `You are the chaos agent in a multiplayer storytelling game called "Plot Twist."

Your role is to inject unexpected, HILARIOUS twists into collaborative stories being written by players. The twist should:

1. **BE GENUINELY FUNNY** - This is critical. The twist must make people laugh out loud. Use absurdity, unexpected contrasts, specific details, and comedic timing.

2. **BE UNEXPECTED** - The best comedy comes from subverting expectations. Don't be predictable.

3. **ADD TO THE STORY** - The twist should give players fun new material to work with, not shut the story down.

4. **BE CONCISE** - Keep it to 1-3 sentences max. Players need room to react and build on it.

5. **MATCH THE VIBE** - If the story is lighthearted, stay lighthearted. If it's dramatic, make the twist hilariously undercut that drama.

HUMOR TECHNIQUES THAT WORK:
- Specificity (don't say "food," say "a suspiciously warm potato salad")
- Contrast (serious situation + ridiculous element)
- Escalation (make it slightly more absurd than expected)
- Unexpected consequences (logical but ridiculous outcomes)
- Character voice (give inanimate objects personalities)

AVOID:
- Being random for the sake of random (absurd yes, but with internal logic)
- Pop culture references (they age poorly and not everyone gets them)
- Mean-spirited humor
- Ending the story or making it impossible to continue
- Being too similar to previous twists in the story

Remember: Players trust you to make them laugh. This is your ONE job. Make it count.`

// recentContextWindow bounds how many trailing contributions go into the
// prompt; older ones collapse into an elision marker.
const recentContextWindow = 5

// buildTwistPrompt assembles system and user prompts for the given story
// context. A story with exactly one contribution gets the opening-twist
// framing; anything longer gets the bounded recent window.
func buildTwistPrompt(contributions []ContributionView, twistType, theme string) (system, prompt string) {
	if len(contributions) == 1 {
		return buildOpeningTwistPrompt(contributions[0].Content, theme)
	}
	return buildContextualTwistPrompt(contributions, twistType, theme)
}

func buildContextualTwistPrompt(contributions []ContributionView, twistType, theme string) (string, string) {
	context := storyContext(contributions)

	guidance := "Choose whichever twist type would be funniest given this story."
	if twistType != "" && twistType != twistTypeRandom {
		guidance = fmt.Sprintf("Focus on a %s twist: %s", twistType, twistDescriptions[twistType])
	}
	themeGuidance := ""
	if theme != "" {
		themeGuidance = fmt.Sprintf("\n\nSTORY THEME: %q - Your twist should fit this theme while still being unexpected.", theme)
	}

	prompt := fmt.Sprintf(`Here's the story so far:

%s

%s%s

Generate a hilarious plot twist that adds chaos to this story. Make it funny, unexpected, and give the players something fun to work with.

Return ONLY the twist itself (1-3 sentences), no explanations or meta-commentary.`, context, guidance, themeGuidance)

	return twistSystemPrompt, prompt
}

func buildOpeningTwistPrompt(opening, theme string) (string, string) {
	themeGuidance := ""
	if theme != "" {
		themeGuidance = fmt.Sprintf("The story theme is %q. Your twist should fit this theme.", theme)
	}

	prompt := fmt.Sprintf(`The story has just begun with this opening:

%q

%s

This is the FIRST twist in the story, so set the tone for chaos. Make it hilarious and give the players a fun, absurd situation to develop.

Return ONLY the twist itself (1-3 sentences), no explanations or meta-commentary.`, opening, themeGuidance)

	return twistSystemPrompt, prompt
}

func storyContext(contributions []ContributionView) string {
	if len(contributions) == 0 {
		return "[Story is just beginning - this will be the opening twist]"
	}

	recent := contributions
	if len(recent) > recentContextWindow {
		recent = recent[len(recent)-recentContextWindow:]
	}
	lines := make([]string, 0, len(recent))
	for _, entry := range recent {
		label := entry.AuthorNickname
		if entry.Type == contributionTypeAI {
			label = "AI Twist"
		} else if label == "" {
			label = "Player"
		}
		lines = append(lines, fmt.Sprintf("%s: %q", label, entry.Content))
	}
	context := strings.Join(lines, "\n\n")
	if omitted := len(contributions) - recentContextWindow; omitted > 0 {
		context = fmt.Sprintf("[...%d earlier contributions...]\n\n%s", omitted, context)
	}
	return context
}

var fallbackTwists = []string{
	"A mysterious voice over the intercom announced: 'This is your captain speaking. We are experiencing technical difficulties with reality. Please remain seated and keep your existential dread to yourself.'",

	"Time hiccuped. Everyone experienced the last 30 seconds in reverse, but only their most embarrassing actions. Dignity was lost, confusion was gained.",

	"The laws of physics checked their phone mid-enforcement and got distracted. Gravity became 'more of a suggestion' for the next few minutes.",

	"A cosmic bureaucrat appeared, clipboard in hand. 'Someone filed a Complaint About Normalcy form. I'm here to resolve it.' They began making things aggressively weird.",

	"Reality's spell-check activated, randomly changing one word in everyone's sentences to something hilariously inappropriate. Communication became chaos.",
}

func randomFallbackTwist() string {
	return fallbackTwists[rand.Intn(len(fallbackTwists))]
}
