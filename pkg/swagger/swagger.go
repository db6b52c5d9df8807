package swagger

import (
	"html"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// =============================================================================
// Swagger UI Integration
// =============================================================================
// Serves an OpenAPI document and a Swagger UI page for it.
//
// Usage:
//
//	//go:embed openapi.yaml
//	var spec []byte
//
//	app.Use(swagger.Handler(swagger.Config{
//	    Spec:  spec,
//	    Title: "E*TRADE Broker Adapter",
//	}))
// =============================================================================

// Config holds Swagger UI configuration
type Config struct {
	// Spec is the OpenAPI document served at BasePath + "/openapi.yaml"
	Spec []byte

	// SpecURL points the UI at an externally hosted document instead
	SpecURL string

	// Title shown in Swagger UI
	Title string

	// BasePath is the base path where Swagger UI is served
	BasePath string
}

// Handler returns a Fiber handler that serves Swagger UI
func Handler(config Config) fiber.Handler {
	if config.Title == "" {
		config.Title = "API Documentation"
	}
	if config.BasePath == "" {
		config.BasePath = "/docs"
	}
	config.BasePath = strings.TrimRight(config.BasePath, "/")

	specPath := config.BasePath + "/openapi.yaml"
	if config.SpecURL == "" {
		config.SpecURL = specPath
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()

		switch {
		case path == specPath && len(config.Spec) > 0:
			c.Set(fiber.HeaderContentType, "application/x-yaml")
			return c.Send(config.Spec)
		case path == config.BasePath || path == config.BasePath+"/":
			return serveSwaggerUI(c, config)
		}

		return c.Next()
	}
}

func serveSwaggerUI(c *fiber.Ctx, config Config) error {
	page := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + html.EscapeString(config.Title) + `</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
    <style>
        body { margin: 0; background: #fafafa; }
        .swagger-ui .topbar { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: "` + html.EscapeString(config.SpecURL) + `",
                dom_id: '#swagger-ui',
                deepLinking: true,
                persistAuthorization: true,
                displayRequestDuration: true
            });
        };
    </script>
</body>
</html>`

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(page)
}
