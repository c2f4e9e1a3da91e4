package fleetapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"flota_console/internal/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token. A 401 here is a bad
// credential, not an expired session.
func (c *Client) Login(ctx context.Context, email, password string) (string, models.User, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
	if err != nil {
		return "", models.User{}, err
	}
	var user models.User
	if len(env.User) > 0 {
		if err := json.Unmarshal(env.User, &user); err != nil {
			return "", models.User{}, badPayload(err)
		}
	}
	if env.Token == "" {
		return "", models.User{}, badPayload(errEmptyToken)
	}
	return env.Token, user, nil
}

// Me verifies the current token and returns its user.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := json.Unmarshal(env.User, &user); err != nil {
		return models.User{}, badPayload(err)
	}
	return user, nil
}

type constError string

func (e constError) Error() string { return string(e) }

const errEmptyToken = constError("login response without token")
