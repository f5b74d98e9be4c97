package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/service"
)

// ReviewHandler serves the /reviews endpoints.
type ReviewHandler struct {
    Reviews *service.ReviewService
}

func NewReviewHandler(s *service.ReviewService) *ReviewHandler {
    return &ReviewHandler{Reviews: s}
}

type reviewReq struct {
    ProductID uint64  `json:"product_id"`
    Grade     int     `json:"grade"`
    Comment   *string `json:"comment"`
}

func (h *ReviewHandler) List(c echo.Context) error {
    ctx, cancel := withTimeout(c)
    defer cancel()
    out, err := h.Reviews.List(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

func (h *ReviewHandler) ListByProduct(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    out, err := h.Reviews.ListByProduct(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

func (h *ReviewHandler) Create(c echo.Context) error {
    buyer, err := currentUser(c)
    if err != nil {
        return err
    }
    var req reviewReq
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    rv, err := h.Reviews.Create(ctx, buyer, service.ReviewInput{
        ProductID: req.ProductID,
        Grade:     req.Grade,
        Comment:   req.Comment,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHandler) Delete(c echo.Context) error {
    admin, err := currentUser(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    if err := h.Reviews.Delete(ctx, admin, id); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Review deleted"})
}
