package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"trivia-party/internal/game"
)

// RespondJSON writes v as the JSON response body.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// RespondError maps domain sentinel errors onto HTTP status codes and
// writes a JSON error body. Unknown errors become 500 with a generic
// message so internals never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		RespondJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, game.ErrNotHost):
		RespondJSON(w, http.StatusForbidden, errorBody{Error: "only the host may do that"})
	case errors.Is(err, game.ErrGameEnded):
		RespondJSON(w, http.StatusGone, errorBody{Error: "game has ended"})
	case errors.Is(err, game.ErrGameInProgress):
		RespondJSON(w, http.StatusForbidden, errorBody{Error: "game is in progress"})
	case errors.Is(err, game.ErrInvalidTransition):
		RespondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, game.ErrConflict):
		RespondJSON(w, http.StatusConflict, errorBody{Error: "concurrent update, retry"})
	case errors.Is(err, game.ErrScoringUnavailable):
		RespondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "scoring unavailable, retry"})
	default:
		RespondJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	RespondJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
