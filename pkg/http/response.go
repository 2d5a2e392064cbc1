package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// DataResponse writes the API envelope with status and data.
func DataResponse(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// ListResponse writes a list envelope.
func ListResponse(c echo.Context, rows any, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{Rows: rows, Total: total})
}

func SuccessResponse(c echo.Context, data any) error    { return DataResponse(c, http.StatusOK, data) }
func CreatedResponse(c echo.Context, data any) error    { return DataResponse(c, http.StatusCreated, data) }
func BadRequestResponse(c echo.Context, data any) error { return DataResponse(c, http.StatusBadRequest, data) }

// AppErrorResponse writes err as a one-element error list. Errors that are not
// an AppError are logged and masked as a generic 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		c.Logger().Error(err)
		appErr = InternalError("Something went wrong")
	}
	return DataResponse(c, appErr.Status, []*AppError{appErr})
}
