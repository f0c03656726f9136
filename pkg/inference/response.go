package inference

import (
	"errors"
	"net/http"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the JSON body of every prediction reply.
type Response struct {
	Survived    *bool    `json:"survived,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	Status      string   `json:"status"`
	Message     string   `json:"message,omitempty"`
	ModelID     string   `json:"model_id,omitempty"`
}

// Respond renders a prediction outcome. A non-nil err always yields
// status "error" with a message.
func Respond(p Prediction, err error) Response {
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = errtypes.Kind(err)
		}
		return Response{Status: StatusError, Message: msg}
	}
	survived, probability := p.Survived, p.Probability
	return Response{
		Survived:    &survived,
		Probability: &probability,
		Status:      StatusSuccess,
		ModelID:     p.ModelID,
	}
}

// HTTPStatus is the status code for a prediction outcome.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
