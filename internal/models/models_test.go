package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorDisplayNamePrefersUsername(t *testing.T) {
	actor := Actor{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "@ada", actor.DisplayName())
}

func TestActorDisplayNameFallsBackToFullName(t *testing.T) {
	actor := Actor{FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada Lovelace", actor.DisplayName())

	actor = Actor{FirstName: "Ada"}
	assert.Equal(t, "Ada", actor.DisplayName())
}

func TestUserContextCan(t *testing.T) {
	user := UserContext{Permissions: []string{"weather_check", "send_email"}}
	assert.True(t, user.Can("weather_check"))
	assert.False(t, user.Can("generate_report"))
}
