package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/rafflelive/backend/pkg/errorx"
	"github.com/rafflelive/backend/pkg/xcontext"
)

// Endpoint binds one request/response pair to a path. GET requests decode
// from query parameters, everything else from the JSON body.
type Endpoint[Request, Response any] struct {
	Method string
	Path   string
	Handle func(ctx context.Context, req *Request) (*Response, error)
}

// Envelope is what every JSON endpoint answers with.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (e *Endpoint[Request, Response]) Register(mux *http.ServeMux) {
	mux.HandleFunc(e.Path, func(w http.ResponseWriter, r *http.Request) {
		if e.Method != "" && r.Method != e.Method {
			writeError(w, errorx.New(errorx.BadRequest, "Method not allowed"))
			return
		}

		var req Request
		if err := e.readRequest(r, &req); err != nil {
			writeError(w, errorx.New(errorx.BadRequest, "Malformed request"))
			return
		}

		resp, err := e.Handle(r.Context(), &req)
		if err != nil {
			xcontext.Logger(r.Context()).Debugf("Request %s failed: %v", e.Path, err)
			writeError(w, err)
			return
		}

		writeJson(w, http.StatusOK, Envelope{Success: true, Data: resp})
	})
}

func (e *Endpoint[Request, Response]) readRequest(r *http.Request, req *Request) error {
	switch r.Method {
	case http.MethodGet, http.MethodDelete:
		v := reflect.ValueOf(req).Elem()
		for i := 0; i < v.NumField(); i++ {
			name := v.Type().Field(i).Tag.Get("json")
			queryVal := r.URL.Query().Get(name)
			if queryVal == "" {
				continue
			}

			switch field := v.Field(i).Addr().Interface().(type) {
			case *string:
				*field = queryVal
			case *int:
				val, err := strconv.Atoi(queryVal)
				if err != nil {
					return err
				}
				*field = val
			}
		}

		return nil

	default:
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}

		return json.Unmarshal(b, req)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var errx errorx.Error
	if !errors.As(err, &errx) {
		errx = errorx.Unknown
	}

	writeJson(w, errx.Code.HttpStatusCode(), Envelope{Error: errx.Message})
}

func writeJson(w http.ResponseWriter, status int, resp Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	b, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Write(b)
}
