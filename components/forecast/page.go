package forecast

import (
	"context"
	"errors"
	"io"
)

// Controller renders the dashboard HTML shell. The page bootstraps itself
// from the JSON endpoints, so the template only needs the title and base
// path.
type Controller struct {
	renderer Renderer
	store    *Store
	sessions SessionChecker
	basePath string
}

// ErrUnauthenticated is returned when the session checker yields no session;
// hosts translate it into a login redirect.
var ErrUnauthenticated = errors.New("forecast: viewer is not authenticated")

// NewController wires the renderer and store into a page controller. The
// session checker may be nil for hosts that gate access upstream.
func NewController(renderer Renderer, store *Store, sessions SessionChecker, basePath string) *Controller {
	if basePath == "" {
		basePath = "/forecast"
	}
	return &Controller{renderer: renderer, store: store, sessions: sessions, basePath: basePath}
}

// RenderPage writes the dashboard shell for an authenticated viewer.
func (c *Controller) RenderPage(ctx context.Context, out io.Writer) error {
	if c.sessions != nil {
		session, err := c.sessions.GetSession(ctx)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrUnauthenticated
		}
	}
	_, err := c.renderer.Render("dashboard", map[string]any{
		"title":     c.store.Title(),
		"base_path": c.basePath,
	}, out)
	return err
}
