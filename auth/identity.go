package auth

import (
	"strings"

	"gallery/config"

	"github.com/gin-gonic/gin"
)

// Identity is who the authenticating proxy says is calling
type Identity struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// IdentityFrom reads the proxy headers. A zero Identity means anonymous.
func IdentityFrom(c *gin.Context) Identity {
	return Identity{
		Email:    strings.ToLower(strings.TrimSpace(c.GetHeader(config.AUTH_HEADER_EMAIL))),
		Name:     strings.TrimSpace(c.GetHeader(config.AUTH_HEADER_NAME)),
		Username: strings.TrimSpace(c.GetHeader(config.AUTH_HEADER_USERNAME)),
	}
}

func (i *Identity) SignedIn() bool {
	return i.Email != "" || i.Username != ""
}

func (i *Identity) IsOwner() bool {
	return config.IsOwner(i.Email, i.Username)
}

// DisplayName is the best human readable name available
func (i *Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Username != "":
		return i.Username
	}
	return i.Email
}
