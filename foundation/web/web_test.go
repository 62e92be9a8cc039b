package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/zimcoin/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type payload struct {
	Name string `json:"name"`
}

func (p payload) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func Test_App(t *testing.T) {
	shutdown := make(chan os.Signal, 1)

	var order []string
	mark := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(shutdown, mark("app"))

	var traceID string
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		traceID = web.GetTraceID(ctx)

		var p payload
		if err := web.Decode(r, &p); err != nil {
			return web.Respond(ctx, w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		}

		return web.Respond(ctx, w, map[string]string{"id": web.Param(r, "id"), "name": p.Name}, http.StatusOK)
	}
	app.Handle(http.MethodPost, "v1", "/items/:id", h, mark("route"))

	app.Handle(http.MethodGet, "v1", "/fatal", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	})

	t.Log("Given the need to route requests through middleware.")
	{
		r := httptest.NewRequest(http.MethodPost, "/v1/items/42", strings.NewReader(`{"name":"bill"}`))
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("\t%s\tShould receive a 200, got %d: %s", failed, w.Code, w.Body.String())
		}
		t.Logf("\t%s\tShould receive a 200.", success)

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("\t%s\tShould be able to decode the response: %s", failed, err)
		}
		if got["id"] != "42" || got["name"] != "bill" {
			t.Fatalf("\t%s\tShould get the param and the body back, got %v", failed, got)
		}
		t.Logf("\t%s\tShould get the param and the body back.", success)

		if len(order) != 2 || order[0] != "app" || order[1] != "route" {
			t.Fatalf("\t%s\tShould run app middleware before route middleware, got %v", failed, order)
		}
		t.Logf("\t%s\tShould run app middleware before route middleware.", success)

		if len(traceID) != 36 {
			t.Fatalf("\t%s\tShould assign a trace id, got %q", failed, traceID)
		}
		t.Logf("\t%s\tShould assign a trace id.", success)
	}

	t.Log("Given the need to reject bad payloads.")
	{
		for _, body := range []string{`{"name":""}`, `{"name":"bill","extra":1}`, `{`} {
			r := httptest.NewRequest(http.MethodPost, "/v1/items/1", strings.NewReader(body))
			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tShould receive a 400 for %s, got %d", failed, body, w.Code)
			}
			t.Logf("\t%s\tShould receive a 400 for %s.", success, body)
		}
	}

	t.Log("Given a handler reporting an integrity issue.")
	{
		r := httptest.NewRequest(http.MethodGet, "/v1/fatal", nil)
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)

		select {
		case <-shutdown:
			t.Logf("\t%s\tShould signal a shutdown.", success)
		default:
			t.Fatalf("\t%s\tShould signal a shutdown.", failed)
		}
	}
}
