package chat

// PlainMarkup renders reply text as-is. Devices require a non-empty
// markup body to speak at all, so the router runs every outgoing reply
// through a renderer; installations with gesture or mood annotation
// supply their own ports.Markup.
type PlainMarkup struct{}

func (PlainMarkup) Render(text string) string {
	return text
}
