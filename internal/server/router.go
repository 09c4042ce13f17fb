package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/pkg/errors"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// apiAction handles a JSON endpoint; the returned value is encoded as the body
type apiAction func(*http.Request) (any, error)

// HTTPError carries the status code and the message shown to the client
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func httpError(code int, message string) error {
	return &HTTPError{Code: code, Message: message}
}

type errorBody struct {
	Error string `json:"error"`
}

// api wraps an apiAction into a handler that writes JSON
func api(h apiAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h(r)
		if err != nil {
			var he *HTTPError
			if errors.As(err, &he) {
				writeJSON(w, he.Code, errorBody{Error: he.Message})
				return
			}
			log.Printf("%s %s: %+v", r.Method, r.URL.Path, err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	buffer, err := json.Marshal(data)
	if err != nil {
		log.Printf("encode response: %+v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(buffer); err != nil {
		log.Printf("write response: %v", err)
	}
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return httpError(http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	return nil
}
