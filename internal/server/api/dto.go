package api

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/addressbook/internal/server/models"
	"github.com/dmitrijs2005/addressbook/internal/server/services"
)

type signupRequest struct {
	UserName string `json:"username" validate:"required,min=5,max=16"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=10"`
}

// loginRequest is an OAuth2 password form; username carries the email.
type loginRequest struct {
	UserName string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type requestEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type contactRequest struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"required,max=10"`
	Birthday  string `json:"birthday" validate:"required,datetime=2006-01-02"`
}

func (r contactRequest) toModel() models.Contact {
	return models.Contact{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Birthday:  r.Birthday,
	}
}

type contactResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday"`
}

func newContactResponse(c *models.Contact) contactResponse {
	return contactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Birthday:  c.Birthday,
	}
}

func newContactList(cs []models.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for i := range cs {
		out = append(out, newContactResponse(&cs[i]))
	}
	return out
}

type userResponse struct {
	ID        int64     `json:"id"`
	UserName  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Avatar    string    `json:"avatar"`
}

func newUserResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:        u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
	if u.Avatar != nil {
		resp.Avatar = *u.Avatar
	}
	return resp
}

type signupResponse struct {
	User   userResponse `json:"user"`
	Detail string       `json:"detail"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken, TokenType: p.TokenType}
}

type messageResponse struct {
	Message string `json:"message"`
}

// newValidator reports fields by their wire names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}
