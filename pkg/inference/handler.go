package inference

import (
	"fmt"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"github.com/labstack/echo/v4"
)

// Handler answers prediction requests with a Response body.
func Handler(p *Predictor) echo.HandlerFunc {
	return func(c echo.Context) error {
		pred, err := predict(p, c)
		if err != nil {
			c.Logger().Warnf("prediction failed: %+v", err)
		}
		return c.JSON(HTTPStatus(err), Respond(pred, err))
	}
}

// predict turns a panic in the model into an error.
func predict(p *Predictor, c echo.Context) (pred Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errtypes.Inference("model failure: %s", fmt.Sprint(r))
		}
	}()
	req, err := DecodeRequest(c.Request().Body)
	if err != nil {
		return Prediction{}, err
	}
	return p.Predict(req)
}
