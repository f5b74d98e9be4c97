package handler

import (
    "bytes"
    "encoding/json"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/model"
    "github.com/iliyamo/storefront-api/internal/service"
)

// AuthHandler serves the /users endpoints.
type AuthHandler struct {
    Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler {
    return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email" form:"email"`
    Password string `json:"password" form:"password"`
    Role     string `json:"role" form:"role"` // buyer | seller
}

// loginReq follows the OAuth2 password form: the email goes in username.
type loginReq struct {
    Username string `json:"username" form:"username"`
    Email    string `json:"email" form:"email"`
    Password string `json:"password" form:"password"`
}

type refreshReq struct {
    RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type tokenResp struct {
    AccessToken  string    `json:"access_token"`
    RefreshToken string    `json:"refresh_token,omitempty"`
    TokenType    string    `json:"token_type"`
    ExpiresAt    time.Time `json:"expires_at"`
}

// Register: create an active buyer or seller.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    u, err := h.Auth.Register(ctx, service.RegisterInput{
        Email:    req.Email,
        Password: req.Password,
        Role:     model.Role(strings.ToLower(strings.TrimSpace(req.Role))),
    })
    if err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, u)
}

// Login: verify credentials and return an access and a refresh token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badBody()
    }
    email := req.Username
    if email == "" {
        email = req.Email
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    pair, err := h.Auth.Login(ctx, email, req.Password)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, tokenResp{
        AccessToken:  pair.AccessToken,
        RefreshToken: pair.RefreshToken,
        TokenType:    "bearer",
        ExpiresAt:    pair.AccessExpiry,
    })
}

// Refresh: exchange a refresh token for a new access token.  The token may
// come as a JSON object, a bare JSON string, a form field or a query
// parameter.
func (h *AuthHandler) Refresh(c echo.Context) error {
    raw, err := refreshTokenOf(c)
    if err != nil {
        return err
    }
    if raw == "" {
        raw = strings.TrimSpace(c.QueryParam("refresh_token"))
    }
    ctx, cancel := withTimeout(c)
    defer cancel()

    access, exp, err := h.Auth.Refresh(ctx, raw)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, tokenResp{
        AccessToken: access,
        TokenType:   "bearer",
        ExpiresAt:   exp,
    })
}

// refreshTokenOf reads the refresh token from the request body.  A body
// that does not bind to refreshReq is tried as a bare JSON string.
func refreshTokenOf(c echo.Context) (string, error) {
    r := c.Request()
    body, err := io.ReadAll(r.Body)
    if err != nil {
        return "", badBody()
    }
    r.Body = io.NopCloser(bytes.NewReader(body))

    var req refreshReq
    if err := c.Bind(&req); err == nil {
        return strings.TrimSpace(req.RefreshToken), nil
    }
    var tok string
    if err := json.Unmarshal(body, &tok); err != nil {
        return "", badBody()
    }
    return strings.TrimSpace(tok), nil
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    u, err := currentUser(c)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, u)
}
