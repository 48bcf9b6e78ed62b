package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"finanquest/internal/core"
)

const (
	pathLogin        = "/api/auth/login"
	pathTransactions = "/api/transactions"
	pathGoals        = "/api/goals"
	pathUsers        = "/users"
	pathChallenges   = "/api/challenges"
	pathAchievements = "/api/achievements"
)

type (
	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  core.User `json:"user"`
	}

	// TransactionInput is the body of create and update requests.
	TransactionInput struct {
		Description string               `json:"description"`
		Amount      core.Money           `json:"amount"`
		Type        core.TransactionType `json:"type"`
		Date        core.Date            `json:"date"`
	}

	GoalInput struct {
		Name         string     `json:"name"`
		TargetAmount core.Money `json:"targetAmount"`
		Deadline     core.Date  `json:"deadline"`
	}

	depositRequest struct {
		Amount core.Money `json:"amount"`
	}

	// ProfileUpdate is the body of PUT /users/{id}. Password is sent only
	// when non-empty.
	ProfileUpdate struct {
		ID               int64  `json:"id"`
		Name             string `json:"name"`
		Email            string `json:"email"`
		Level            int    `json:"level"`
		ExperiencePoints int    `json:"experiencePoints"`
		Password         string `json:"password,omitempty"`
	}

	// profileResponse is the part of the update reply the client uses.
	profileResponse struct {
		Name           string `json:"name"`
		Email          string `json:"email"`
		ProfilePicture string `json:"profilePicture"`
	}

	transactionList []core.Transaction
	goalList        []core.Goal
	userResponse    core.User
)

var ErrEmptyToken = errors.New("login response has no token")

func (r *LoginResponse) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return ErrEmptyToken
	}
	if err := r.User.Validate(); err != nil {
		return fmt.Errorf("login response user: %w", err)
	}
	return nil
}

func (in TransactionInput) Validate() error {
	return core.Transaction{
		Description: in.Description,
		Amount:      in.Amount,
		Type:        in.Type,
		Date:        in.Date,
	}.Validate()
}

func (in GoalInput) Validate() error {
	if err := (core.Goal{Name: in.Name, TargetAmount: in.TargetAmount}).Validate(); err != nil {
		return err
	}
	return in.Deadline.Validate()
}

func (l *transactionList) Validate() error {
	for i, t := range *l {
		if err := t.Type.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
		if t.Date.IsZero() {
			return fmt.Errorf("transaction %d: missing date", i)
		}
		if err := t.Amount.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

func (l *goalList) Validate() error {
	for i, g := range *l {
		if g.CurrentAmount.IsNegative() {
			return fmt.Errorf("goal %d: %w: current amount is negative", i, core.ErrInvalidAmount)
		}
	}
	return nil
}

func (u *userResponse) Validate() error {
	return core.User(*u).Validate()
}

// Login exchanges credentials for a token and the user it belongs to.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	req := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := c.Do(ctx, http.MethodPost, pathLogin, req, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var out transactionList
	if err := c.Do(ctx, http.MethodGet, pathTransactions, nil, &out); err != nil {
		return nil, err
	}
	return []core.Transaction(out), nil
}

func (c *Client) CreateTransaction(ctx context.Context, in TransactionInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPost, pathTransactions, in, nil)
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, in TransactionInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", pathTransactions, id), in, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", pathTransactions, id), nil, nil)
}

func (c *Client) ListGoals(ctx context.Context) ([]core.Goal, error) {
	var out goalList
	if err := c.Do(ctx, http.MethodGet, pathGoals, nil, &out); err != nil {
		return nil, err
	}
	return []core.Goal(out), nil
}

func (c *Client) CreateGoal(ctx context.Context, in GoalInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPost, pathGoals, in, nil)
}

// DepositGoal adds amount to the goal's current amount.
func (c *Client) DepositGoal(ctx context.Context, id int64, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d/deposit", pathGoals, id), depositRequest{Amount: amount}, nil)
}

func (c *Client) DeleteGoal(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", pathGoals, id), nil, nil)
}

func (c *Client) GetUser(ctx context.Context, id int64) (core.User, error) {
	var out userResponse
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", pathUsers, id), nil, &out); err != nil {
		return core.User{}, err
	}
	return core.User(out), nil
}

// UpdateUser saves name and email (and the password when non-empty). The
// backend echoes name and email back; an empty echo keeps the sent value.
// Level and XP are never changed by this call, so they are kept from current.
func (c *Client) UpdateUser(ctx context.Context, current core.User, name, email, password string) (core.User, error) {
	body := ProfileUpdate{
		ID:               current.ID,
		Name:             strings.TrimSpace(name),
		Email:            strings.TrimSpace(email),
		Level:            current.Level,
		ExperiencePoints: current.ExperiencePoints,
		Password:         password,
	}
	if body.Name == "" || body.Email == "" {
		return core.User{}, errors.New("name and email are required")
	}

	var resp profileResponse
	if err := c.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", pathUsers, current.ID), body, &resp); err != nil {
		return core.User{}, err
	}

	updated := current
	updated.Name = firstNonEmpty(resp.Name, body.Name)
	updated.Email = firstNonEmpty(resp.Email, body.Email)
	if resp.ProfilePicture != "" {
		updated.ProfilePicture = resp.ProfilePicture
	}
	if err := updated.Validate(); err != nil {
		return core.User{}, &RemoteError{StatusCode: http.StatusOK, Malformed: true, Err: err}
	}
	return updated, nil
}

// UploadPhoto sends the raw image bytes as the user's profile picture.
func (c *Client) UploadPhoto(ctx context.Context, userID int64, contentType string, r io.Reader) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.send(ctx, http.MethodPut, fmt.Sprintf("%s/%d/photo", pathUsers, userID), contentType, r, nil)
}

func (c *Client) ListChallenges(ctx context.Context) ([]core.Challenge, error) {
	var out []core.Challenge
	if err := c.Do(ctx, http.MethodGet, pathChallenges, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAchievements(ctx context.Context) ([]core.Achievement, error) {
	var out []core.Achievement
	if err := c.Do(ctx, http.MethodGet, pathAchievements, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
