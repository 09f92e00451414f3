package forecast

import "io"

// Renderer describes the template renderer contract needed by the page
// controller.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}
