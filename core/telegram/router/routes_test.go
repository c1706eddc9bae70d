package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/tempmail-bot/core/telegram"
	"github.com/m3rciful/tempmail-bot/core/telegram/commands"
)

type stubFallbacks struct{}

func nop(tele.Context) error { return nil }

func (stubFallbacks) UnknownText() tele.HandlerFunc     { return nop }
func (stubFallbacks) UnknownDocument() tele.HandlerFunc { return nop }
func (stubFallbacks) UnknownCallback() tele.HandlerFunc { return nop }

func TestAllBuildsEveryRoute(t *testing.T) {
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: nop, Description: "menu"}))
	require.NoError(t, reg.RegisterCommand("/stats", commands.Command{Handler: nop, Description: "stats", AdminOnly: true}))

	routes := All(reg, Options{Fallbacks: stubFallbacks{}, Commands: CommandRouteOptions{AdminID: 1}})
	require.Len(t, routes, 5)

	var endpoints []string
	for _, r := range routes {
		assert.NotNil(t, r.Handler)
		if s, ok := r.Endpoint.(string); ok {
			endpoints = append(endpoints, s)
		}
	}
	assert.Equal(t, tele.OnCallback, endpoints[0])
	assert.ElementsMatch(t, []string{tele.OnCallback, "/start", "/stats", tele.OnText, tele.OnDocument}, endpoints)
}

func TestAllWithoutFallbacks(t *testing.T) {
	routes := All(tg.NewRegistry(), Options{})
	assert.Len(t, routes, 3)
}

type codedError struct{}

func (codedError) Error() string { return "coded" }
func (codedError) Code() string  { return "not found" }

type plainError struct{}

func (*plainError) Error() string { return "plain" }

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", errorCode(fmt.Errorf("wrap: %w", codedError{})))
	assert.Equal(t, "PLAINERROR", errorCode(&plainError{}))
	assert.Equal(t, "ERRORSTRING", errorCode(errors.New("x")))
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "start", handlerName("/start"))
	assert.Equal(t, "view_message", handlerName(" View Message "))
	assert.Equal(t, "unknown", handlerName(""))
}
