package ports

// Markup renders plain reply text into the device's presentation markup
// (gestures, mood, pacing). The rule set lives outside the core; the
// router only guarantees that every reply with text carries markup.
type Markup interface {
	Render(text string) string
}
