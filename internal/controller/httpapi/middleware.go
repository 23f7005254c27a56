package httpapi

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutorconnect/internal/model"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

const actorKey = "actor"

// Protected проверяет bearer-токен (HS256)
func Protected(secret []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   secret,
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), "missing or malformed JWT") {
		return fiber.NewError(fiber.StatusBadRequest, "Missing or malformed JWT")
	}
	return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
}

// WithActor строит model.Actor из claims токена: user_id, role, tz
func WithActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(actorKey, actor)
		return c.Next()
	}
}

func actorFromClaims(claims jwt.MapClaims) (model.Actor, error) {
	var actor model.Actor

	switch id := claims["user_id"].(type) {
	case float64:
		actor.UserID = int64(id)
	default:
		return actor, fmt.Errorf("token has no user_id")
	}

	role, _ := claims["role"].(string)
	actor.Role = model.Role(role)
	if !actor.Role.Valid() {
		return actor, fmt.Errorf("token has unknown role %q", role)
	}

	actor.Timezone, _ = claims["tz"].(string)
	if actor.Timezone == "" {
		actor.Timezone = "UTC"
	}
	return actor, nil
}

func actorOf(c *fiber.Ctx) model.Actor {
	actor, _ := c.Locals(actorKey).(model.Actor)
	return actor
}
