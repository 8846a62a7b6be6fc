package conversation

import (
	"WaConsole/entity"
)

// RenderFunc resolves a template name and variables into display text.
type RenderFunc func(name string, variables map[string]string) string

const (
	previewImage      = "📷 Photo"
	previewAudio      = "🎤 Voice message"
	previewVideo      = "🎥 Video"
	previewAttachment = "📎 Attachment"
	previewButton     = "🔘 "
)

// Preview renders the one-line inbox form of a message.
func Preview(msg entity.Message, render RenderFunc) string {
	switch msg.Kind {
	case entity.KindText:
		return msg.Text
	case entity.KindImage:
		return previewImage
	case entity.KindAudio:
		return previewAudio
	case entity.KindVideo:
		return previewVideo
	case entity.KindButton:
		if msg.ButtonText != "" {
			return msg.ButtonText
		}
		return previewButton + msg.Text
	case entity.KindTemplate:
		if render == nil {
			return "Template: " + msg.TemplateName
		}
		return render(msg.TemplateName, msg.TemplateVariables)
	}
	if msg.Text != "" {
		return msg.Text
	}
	return previewAttachment
}
