package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/zimcoin/business/web/errs"
	"github.com/ardanlabs/zimcoin/business/web/mid"
	"github.com/ardanlabs/zimcoin/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Middleware(t *testing.T) {
	log := zap.NewNop().Sugar()

	app := web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Errors(log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)

	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("invalid nonce"), http.StatusBadRequest)
	})
	app.Handle(http.MethodGet, "v1", "/untrusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("disk on fire")
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	type table struct {
		name   string
		path   string
		status int
		msg    string
	}

	tt := []table{
		{name: "trusted", path: "/v1/trusted", status: http.StatusBadRequest, msg: "invalid nonce"},
		{name: "untrusted", path: "/v1/untrusted", status: http.StatusInternalServerError, msg: http.StatusText(http.StatusInternalServerError)},
		{name: "panic", path: "/v1/panic", status: http.StatusInternalServerError, msg: http.StatusText(http.StatusInternalServerError)},
	}

	t.Log("Given the need to turn handler errors into responses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, tst.path, nil)
				w := httptest.NewRecorder()
				app.ServeHTTP(w, r)

				var resp errs.Response
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould get a JSON error response: %s", failed, testID, err)
				}

				if w.Code != tst.status || resp.Error != tst.msg {
					t.Logf("\t%s\tTest %d:\tgot: %d %q", failed, testID, w.Code, resp.Error)
					t.Fatalf("\t%s\tTest %d:\tShould get the right status and message.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the right status and message.", success, testID)

				if w.Header().Get("Access-Control-Allow-Origin") != "*" {
					t.Fatalf("\t%s\tTest %d:\tShould set the CORS headers.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould set the CORS headers.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
