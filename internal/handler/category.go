package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/service"
)

// CategoryHandler serves the /categories endpoints.
type CategoryHandler struct {
    Categories *service.CategoryService
}

func NewCategoryHandler(s *service.CategoryService) *CategoryHandler {
    return &CategoryHandler{Categories: s}
}

type categoryReq struct {
    Name     string  `json:"name"`
    ParentID *uint64 `json:"parent_id"`
}

func (h *CategoryHandler) List(c echo.Context) error {
    ctx, cancel := withTimeout(c)
    defer cancel()
    out, err := h.Categories.List(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

func (h *CategoryHandler) Create(c echo.Context) error {
    var req categoryReq
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    cat, err := h.Categories.Create(ctx, service.CategoryInput{Name: req.Name, ParentID: req.ParentID})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Update(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req categoryReq
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    cat, err := h.Categories.Update(ctx, id, service.CategoryInput{Name: req.Name, ParentID: req.ParentID})
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, cat)
}

func (h *CategoryHandler) Delete(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    if err := h.Categories.Delete(ctx, id); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "Category marked as inactive"})
}
