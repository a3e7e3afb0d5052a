package http

import "github.com/labstack/echo/v4"

// Handler is implemented by the API layer; the server calls it once at
// startup to register routes.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
