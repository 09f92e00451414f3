package gorouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	router "github.com/goliatone/go-router"

	forecast "github.com/goliatone/forecast-dashboard/components/forecast"
	"github.com/goliatone/forecast-dashboard/components/forecast/commands"
	"github.com/goliatone/forecast-dashboard/components/forecast/httpapi"
	"github.com/goliatone/forecast-dashboard/components/forecast/queries"
)

// ViewerResolver extracts the viewer's user id from a request so filter
// preferences can be persisted per viewer.
type ViewerResolver func(router.Context) string

// Config wires go-router with the forecast controllers, APIs, and hooks.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *forecast.Controller
	API            httpapi.Executor
	Rows           *queries.RowsQuery
	Charts         *queries.ChartsQuery
	Choices        *queries.ChoicesQuery
	Summary        *queries.SummaryQuery
	Files          fileDownloader
	Broadcast      *forecast.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
}

type fileDownloader interface {
	DownloadFile(ctx context.Context, id string) ([]byte, string, error)
}

// Register mounts forecast routes (HTML, JSON, REST, WebSocket) on a
// go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	base := cfg.BasePath
	if base == "" {
		base = "/forecast"
	}
	resolver := cfg.ViewerResolver
	if resolver == nil {
		resolver = defaultViewerResolver
	}

	group := cfg.Router.Group(base)

	group.Get("/", router.WrapHandler(func(ctx router.Context) error {
		var buf bytes.Buffer
		if err := cfg.Controller.RenderPage(ctx.Context(), &buf); err != nil {
			if errors.Is(err, forecast.ErrUnauthenticated) {
				return respondError(ctx, http.StatusUnauthorized, err)
			}
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	registerQueries(group, cfg)
	if cfg.API != nil {
		registerAPI(group, cfg.API, resolver)
	}
	if cfg.Broadcast != nil {
		registerWebSocket(group, cfg.Broadcast)
	}
	return nil
}

func registerQueries[T any](r router.Router[T], cfg Config[T]) {
	if cfg.Rows != nil {
		r.Get("/api/rows", router.WrapHandler(func(ctx router.Context) error {
			result, err := cfg.Rows.Query(ctx.Context(), queries.RowsRequest{All: ctx.Query("scope") == "all"})
			if err != nil {
				return respondError(ctx, http.StatusInternalServerError, err)
			}
			return ctx.JSON(http.StatusOK, result)
		}))
	}
	if cfg.Charts != nil {
		r.Get("/api/charts", router.WrapHandler(func(ctx router.Context) error {
			result, err := cfg.Charts.Query(ctx.Context(), queries.ChartsRequest{})
			if err != nil {
				return respondError(ctx, http.StatusInternalServerError, err)
			}
			return ctx.JSON(http.StatusOK, result)
		}))
	}
	if cfg.Choices != nil {
		r.Get("/api/choices", router.WrapHandler(func(ctx router.Context) error {
			result, err := cfg.Choices.Query(ctx.Context(), queries.ChoicesRequest{})
			if err != nil {
				return respondError(ctx, http.StatusInternalServerError, err)
			}
			return ctx.JSON(http.StatusOK, result)
		}))
	}
	if cfg.Summary != nil {
		r.Get("/api/summary", router.WrapHandler(func(ctx router.Context) error {
			result, err := cfg.Summary.Query(ctx.Context(), queries.SummaryRequest{})
			if err != nil {
				return respondError(ctx, http.StatusInternalServerError, err)
			}
			return ctx.JSON(http.StatusOK, result)
		}))
	}
	if cfg.Files != nil {
		r.Get("/api/submissions/:id/file", router.WrapHandler(func(ctx router.Context) error {
			data, name, err := cfg.Files.DownloadFile(ctx.Context(), ctx.Param("id"))
			if err != nil {
				return respondError(ctx, http.StatusNotFound, err)
			}
			ctx.SetHeader("Content-Disposition", `attachment; filename="`+name+`"`)
			ctx.SetHeader("Content-Type", "application/octet-stream")
			return ctx.Send(data)
		}))
	}
}

func registerAPI[T any](r router.Router[T], api httpapi.Executor, resolver ViewerResolver) {
	r.Put("/api/submissions/:id", router.WrapHandler(func(ctx router.Context) error {
		var draft forecast.Submission
		if err := json.Unmarshal(ctx.Body(), &draft); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		draft.ID = ctx.Param("id")
		if err := api.Save(ctx.Context(), commands.SaveSubmissionInput{Draft: draft}); err != nil {
			return respondCommandError(ctx, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "saved"})
	}))

	r.Put("/api/submissions/:id/status", router.WrapHandler(func(ctx router.Context) error {
		var payload struct {
			Status forecast.Status `json:"status"`
		}
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		input := commands.SetStatusInput{ID: ctx.Param("id"), Status: payload.Status}
		if err := api.SetStatus(ctx.Context(), input); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "updated"})
	}))

	r.Put("/api/submissions/:id/file", router.WrapHandler(func(ctx router.Context) error {
		var payload struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		input := commands.RenameFileInput{ID: ctx.Param("id"), Name: payload.Name}
		if err := api.RenameFile(ctx.Context(), input); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "renamed"})
	}))

	r.Delete("/api/submissions/:id/file", router.WrapHandler(func(ctx router.Context) error {
		if err := api.RemoveFile(ctx.Context(), commands.RemoveFileInput{ID: ctx.Param("id")}); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "removed"})
	}))

	r.Delete("/api/submissions/:id", router.WrapHandler(func(ctx router.Context) error {
		input := commands.DeleteSubmissionInput{
			ID:        ctx.Param("id"),
			Confirmed: ctx.Query("confirm") == "true",
		}
		if err := api.Delete(ctx.Context(), input); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "deleted"})
	}))

	r.Post("/api/filter", router.WrapHandler(func(ctx router.Context) error {
		var payload commands.SetFilterInput
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		if payload.UserID == "" {
			payload.UserID = resolver(ctx)
		}
		if err := api.SetFilter(ctx.Context(), payload); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "filtered"})
	}))

	r.Post("/api/reload", router.WrapHandler(func(ctx router.Context) error {
		if err := api.Reload(ctx.Context(), commands.ReloadInput{}); err != nil {
			return respondError(ctx, http.StatusInternalServerError, err)
		}
		return ctx.JSON(http.StatusAccepted, map[string]string{"status": "reloading"})
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *forecast.BroadcastHook) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket("/ws", cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultViewerResolver(ctx router.Context) string {
	if v, ok := ctx.Locals("user_id").(string); ok {
		return v
	}
	return ""
}

func respondCommandError(ctx router.Context, err error) error {
	var verr *forecast.ValidationError
	if errors.As(err, &verr) {
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": verr.Messages})
	}
	return respondError(ctx, http.StatusInternalServerError, err)
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}
