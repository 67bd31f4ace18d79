package ports

import (
	"encoding/json"
	"net/http"
)

type newsfeedResponse struct {
	Success   bool   `json:"success"`
	SubjectID string `json:"subjectID,omitempty"`
	Content   string `json:"content,omitempty"`
	Generated *bool  `json:"generated,omitempty"`
	Cause     string `json:"cause,omitempty"`
}

func writeResponse(w http.ResponseWriter, statusCode int, response newsfeedResponse) {
	body, err := json.Marshal(response)
	if err != nil {
		statusCode = http.StatusInternalServerError
		body = []byte(`{"success":false,"cause":"internal server error"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(body)
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, cause string) {
	writeResponse(w, statusCode, newsfeedResponse{Success: false, Cause: cause})
}
