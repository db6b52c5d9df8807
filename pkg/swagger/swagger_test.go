package swagger

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Handler(Config{
		Spec:  []byte("openapi: 3.0.3\n"),
		Title: "Adapter <API>",
	}))
	app.Get("/other", func(c *fiber.Ctx) error {
		return c.SendString("next")
	})

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{"ui", "/docs", 200, "text/html", `url: "/docs/openapi.yaml"`},
		{"ui trailing slash", "/docs/", 200, "text/html", "Adapter &lt;API&gt;"},
		{"spec", "/docs/openapi.yaml", 200, "application/x-yaml", "openapi: 3.0.3"},
		{"passes through", "/other", 200, "", "next"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Status = %v, want %v", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantType != "" && !strings.HasPrefix(resp.Header.Get("Content-Type"), tt.wantType) {
				t.Errorf("Content-Type = %v, want %v", resp.Header.Get("Content-Type"), tt.wantType)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.wantContain) {
				t.Errorf("body does not contain %q", tt.wantContain)
			}
		})
	}
}

func TestHandler_ExternalSpec(t *testing.T) {
	app := fiber.New()
	app.Use(Handler(Config{SpecURL: "https://example.com/api.yaml", BasePath: "/api-docs/"}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/api-docs", nil))
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "https://example.com/api.yaml") {
		t.Error("UI should load the external spec")
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/api-docs/openapi.yaml", nil))
	if resp.StatusCode != 404 {
		t.Errorf("Status = %v, want 404 when no spec is embedded", resp.StatusCode)
	}
}
