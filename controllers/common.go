package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/config"
	"github.com/abilsmall/marketplace_backend/middleware"
	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/services"
)

func dbName() string {
	return config.DatabaseName()
}

// authedUserID extracts the caller's ObjectID from the JWT claims. When ok is
// false the error response has already been written and the handler must
// return nil without touching the response again.
func authedUserID(c echo.Context) (primitive.ObjectID, bool) {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid token",
		})
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
		return primitive.NilObjectID, false
	}
	return oid, true
}

// serviceError maps the service error taxonomy to an HTTP response.
func serviceError(c echo.Context, err error, fallback string) error {
	switch {
	case services.IsNotFound(err):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: err.Error(),
		})
	case services.IsValidation(err):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case services.IsInsufficientBalance(err):
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: err.Error(),
		})
	case services.IsAlreadyProcessed(err):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: err.Error(),
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: fallback,
		})
	}
}
