package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/layersdb/internal/types"
)

// APIVersion is the version served when a request names none.
const APIVersion = "1.0.0"

// VersionMiddleware parses the X-Api-Version header, stores it in context and
// rejects major versions the server does not serve.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := strings.TrimPrefix(strings.TrimSpace(c.Get("X-Api-Version", APIVersion)), "v")

		// Support version aliases
		switch strings.Count(version, ".") {
		case 0:
			version += ".0.0"
		case 1:
			version += ".0"
		}

		if major, _, _ := strings.Cut(version, "."); major != strings.SplitN(APIVersion, ".", 2)[0] {
			return &types.CustomError{
				Code:    fiber.StatusBadRequest,
				Message: fmt.Sprintf("API version %q is not supported", version),
				Type:    "version",
			}
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", version)
		return c.Next()
	}
}
