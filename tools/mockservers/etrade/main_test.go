package main

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/klinvest/broker-etrade/pkg/etrade"
	"github.com/klinvest/broker-etrade/pkg/models"
	"github.com/klinvest/broker-etrade/pkg/oauth1"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()

	server := NewServer()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	server.routes(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })

	return server, "http://" + ln.Addr().String()
}

func TestUnsignedRequestRejected(t *testing.T) {
	server := NewServer()
	app := fiber.New()
	server.routes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/accounts/list", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 401 {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/health", nil))
	if resp.StatusCode != 200 {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestOAuthFlow(t *testing.T) {
	_, baseURL := startServer(t)
	ctx := context.Background()

	flow := oauth1.NewFlow("ck", "cs", "", etrade.OAuthEndpointFor(baseURL), nil)

	rt, err := flow.RequestToken(ctx)
	if err != nil {
		t.Fatalf("RequestToken() error = %v", err)
	}
	if !rt.CallbackConfirmed {
		t.Error("CallbackConfirmed = false, want true")
	}

	if _, err := flow.AccessToken(ctx, rt, "WRONG"); err == nil {
		t.Error("AccessToken() with bad verifier should fail")
	}

	creds, err := flow.AccessToken(ctx, rt, Verifier)
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if !creds.HasToken() {
		t.Errorf("credentials = %+v, want token pair", creds)
	}

	if _, err := flow.AccessToken(ctx, rt, Verifier); err == nil {
		t.Error("request token should be single use")
	}
}

func TestClientAgainstMock(t *testing.T) {
	_, baseURL := startServer(t)
	ctx := context.Background()

	client := etrade.NewClient(&etrade.Config{
		Credentials: oauth1.Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", Token: "t", TokenSecret: "ts"},
		Sandbox:     true,
		BaseURL:     baseURL,
	})

	accounts, err := client.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("len(accounts) = %d, want 2", len(accounts))
	}

	first := accounts[0]
	if first.ID != "84110000" || first.Name != "Brokerage" {
		t.Errorf("first account = %s %q", first.ID, first.Name)
	}
	if len(first.Positions) != 2 {
		t.Errorf("len(positions) = %d, want 2", len(first.Positions))
	}
	if first.Balance.TotalEquity != 100000+1782.5+2052.5 {
		t.Errorf("TotalEquity = %v", first.Balance.TotalEquity)
	}

	second := accounts[1]
	if second.Name != "E*TRADE 84110001" {
		t.Errorf("unnamed account Name = %q", second.Name)
	}
	if second.Positions == nil || len(second.Positions) != 0 {
		t.Errorf("empty portfolio positions = %v, want empty slice", second.Positions)
	}

	limit := 410.0
	order, err := client.SubmitOrder(ctx, "dBZOKt9xDrtRSAOl4MSiiA", &models.OrderRequest{
		SymbolID:   "MSFT",
		Side:       models.Buy,
		Type:       models.Limit,
		Quantity:   2,
		LimitPrice: &limit,
	})
	if err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}
	if order.ID != "501" {
		t.Errorf("order ID = %s, want 501", order.ID)
	}
	if order.Status != models.OrderStatusSubmitted {
		t.Errorf("status = %s, want submitted", order.Status)
	}

	_, err = client.SubmitOrder(ctx, "unknown", &models.OrderRequest{
		SymbolID: "MSFT", Side: models.Buy, Type: models.Market, Quantity: 1,
	})
	apiErr, ok := err.(*etrade.APIError)
	if !ok || apiErr.StatusCode != 404 {
		t.Errorf("unknown account error = %v, want 404 APIError", err)
	}
}

func TestOAuthParam(t *testing.T) {
	header := `OAuth oauth_consumer_key="ck", oauth_token="req%2Dtok", oauth_verifier="MOCK1"`

	tests := []struct {
		key  string
		want string
	}{
		{"oauth_consumer_key", "ck"},
		{"oauth_token", "req-tok"},
		{"oauth_verifier", "MOCK1"},
		{"oauth_signature", ""},
	}

	for _, tt := range tests {
		if got := oauthParam(header, tt.key); got != tt.want {
			t.Errorf("oauthParam(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
