package resp

import (
	"encoding/json"
	"net/http"
)

func WriteJSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError - ошибка в виде {"error": "..."}
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSONResponse(w, status, map[string]string{"error": msg})
}
