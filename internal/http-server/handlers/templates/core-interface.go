package templates

type Core interface {
	RenderTemplate(name string, variables map[string]string) string
}
