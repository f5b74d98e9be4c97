package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/storefront-api/internal/service"
)

// statusOf maps a domain error kind to its HTTP status.
func statusOf(err error) (int, bool) {
    switch {
    case errors.Is(err, service.ErrUnauthorized):
        return http.StatusUnauthorized, true
    case errors.Is(err, service.ErrForbidden):
        return http.StatusForbidden, true
    case errors.Is(err, service.ErrNotFound):
        return http.StatusNotFound, true
    case errors.Is(err, service.ErrConflict):
        return http.StatusConflict, true
    case errors.Is(err, service.ErrInvalidReference):
        return http.StatusBadRequest, true
    case errors.Is(err, service.ErrValidation):
        return http.StatusUnprocessableEntity, true
    }
    return 0, false
}

// ErrorHandler renders every error that reaches Echo as {"error": "..."}.
// Domain errors keep their message; echo.HTTPErrors keep code and message;
// anything else is logged and hidden behind a generic 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        code := http.StatusInternalServerError
        msg := "internal server error"

        var de *service.Error
        var he *echo.HTTPError
        switch {
        case errors.As(err, &de):
            if s, ok := statusOf(de); ok {
                code, msg = s, de.Message
            }
        case errors.As(err, &he):
            code = he.Code
            if m, ok := he.Message.(string); ok {
                msg = m
            } else {
                msg = http.StatusText(code)
            }
        }

        if code >= http.StatusInternalServerError {
            log.Error("request failed",
                zap.String("method", c.Request().Method),
                zap.String("path", c.Path()),
                zap.Error(err),
            )
        }
        if code == http.StatusUnauthorized {
            c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
        }

        if c.Request().Method == http.MethodHead {
            err = c.NoContent(code)
        } else {
            err = c.JSON(code, echo.Map{"error": msg})
        }
        if err != nil {
            log.Warn("write error response", zap.Error(err))
        }
    }
}
