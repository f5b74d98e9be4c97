package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/service"
)

// ProductHandler serves the /products endpoints.
type ProductHandler struct {
    Products *service.ProductService
}

func NewProductHandler(s *service.ProductService) *ProductHandler {
    return &ProductHandler{Products: s}
}

type productCreateReq struct {
    Name        string  `json:"name"`
    Description *string `json:"description"`
    Price       float64 `json:"price"`
    ImageURL    *string `json:"image_url"`
    Stock       int     `json:"stock"`
    CategoryID  uint64  `json:"category_id"`
}

// productPatchReq leaves absent fields nil so they keep their value.
type productPatchReq struct {
    Name        *string  `json:"name"`
    Description *string  `json:"description"`
    Price       *float64 `json:"price"`
    ImageURL    *string  `json:"image_url"`
    Stock       *int     `json:"stock"`
    CategoryID  *uint64  `json:"category_id"`
}

func (h *ProductHandler) List(c echo.Context) error {
    ctx, cancel := withTimeout(c)
    defer cancel()
    out, err := h.Products.List(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) ListByCategory(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    out, err := h.Products.ListByCategory(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    p, err := h.Products.Get(ctx, id)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
    seller, err := currentUser(c)
    if err != nil {
        return err
    }
    var req productCreateReq
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    p, err := h.Products.Create(ctx, seller, service.ProductInput{
        Name:        req.Name,
        Description: req.Description,
        Price:       req.Price,
        ImageURL:    req.ImageURL,
        Stock:       req.Stock,
        CategoryID:  req.CategoryID,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Update(c echo.Context) error {
    seller, err := currentUser(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    var req productPatchReq
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    p, err := h.Products.Update(ctx, seller, id, service.ProductPatch{
        Name:        req.Name,
        Description: req.Description,
        Price:       req.Price,
        ImageURL:    req.ImageURL,
        Stock:       req.Stock,
        CategoryID:  req.CategoryID,
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
    seller, err := currentUser(c)
    if err != nil {
        return err
    }
    id, err := pathID(c, "id")
    if err != nil {
        return err
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    if err := h.Products.Delete(ctx, seller, id); err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "Product marked as inactive"})
}
