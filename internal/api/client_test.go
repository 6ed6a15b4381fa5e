// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/tunnelmaster/internal/api"
	"github.com/toeirei/tunnelmaster/internal/model"
	"github.com/toeirei/tunnelmaster/internal/testutil"
)

func serveBody(t *testing.T, status int, body string) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "   ", "ftp://example.com", "example.com"} {
		if _, err := api.NewClient(u); err == nil {
			t.Errorf("NewClient(%q) expected error", u)
		}
	}
	c, err := api.NewClient("http://example.com/")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.BaseURL() != "http://example.com" {
		t.Errorf("trailing slash not trimmed: %q", c.BaseURL())
	}
}

func TestSend_SuccessDeliversDataUnmodified(t *testing.T) {
	c := serveBody(t, http.StatusOK, `{"code":0,"msg":"OK","data":[{"id":"a","name":"alpha","status":"online","uptime":42}]}`)
	env, err := api.Send[[]model.Tunnel](context.Background(), c, http.MethodGet, "/api/tunnels", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !env.OK() || env.Msg != "OK" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	want := model.Tunnel{ID: "a", Name: "alpha", Status: model.StatusOnline, Uptime: 42}
	if len(env.Data) != 1 || env.Data[0] != want {
		t.Fatalf("data modified: %+v", env.Data)
	}
}

func TestSend_ApplicationFailureStillReturnsEnvelope(t *testing.T) {
	c := serveBody(t, http.StatusOK, `{"code":-1,"msg":"record not found","data":{"weird":true}}`)
	env, err := api.Send[[]model.Tunnel](context.Background(), c, http.MethodGet, "/api/tunnels", nil)
	if err != nil {
		t.Fatalf("Send returned transport error for a delivered envelope: %v", err)
	}
	if env.OK() || env.Code != -1 || env.Msg != "record not found" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Data != nil {
		t.Fatalf("data of failed envelope should be ignored, got %+v", env.Data)
	}
}

func TestDo_ApplicationError(t *testing.T) {
	c := serveBody(t, http.StatusOK, `{"code":7,"msg":"name taken"}`)
	_, err := api.Do[string](context.Background(), c, http.MethodGet, "/x", nil)
	var appErr *api.ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected ApplicationError, got %T %v", err, err)
	}
	if appErr.Code != 7 || api.Message(err) != "name taken" {
		t.Fatalf("unexpected application error: %+v", appErr)
	}
	if api.IsTransport(err) || !api.IsApplication(err) {
		t.Fatalf("misclassified error")
	}
}

func TestDo_NonSuccessStatusIsTransportError(t *testing.T) {
	c := serveBody(t, http.StatusBadGateway, `{"code":0,"msg":"OK"}`)
	_, err := api.Do[string](context.Background(), c, http.MethodGet, "/x", nil)
	var tErr *api.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
	if tErr.StatusCode != http.StatusBadGateway || !strings.Contains(api.Message(err), "Bad Gateway") {
		t.Fatalf("unexpected transport error: %+v", tErr)
	}
}

func TestDo_MalformedBodyIsTransportError(t *testing.T) {
	c := serveBody(t, http.StatusOK, `<html>oops</html>`)
	_, err := api.Do[string](context.Background(), c, http.MethodGet, "/x", nil)
	if !api.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestDo_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c, err := api.NewClient(url)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = api.Do[string](context.Background(), c, http.MethodGet, "/x", nil)
	var tErr *api.TransportError
	if !errors.As(err, &tErr) || tErr.StatusCode != 0 {
		t.Fatalf("expected connection-level TransportError, got %v", err)
	}
}

func TestClient_SendsHeadersAndCredentials(t *testing.T) {
	var gotAuth bool
	var gotID, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		gotAuth = ok && u == "admin" && p == "pw"
		gotID = r.Header.Get("X-Request-Id")
		gotCT = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"code":0,"msg":"OK"}`))
	}))
	defer srv.Close()
	c, err := api.NewClient(srv.URL, api.WithBasicAuth("admin", "pw"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.CreateTunnel(context.Background(), "alpha"); err != nil {
		t.Fatalf("CreateTunnel: %v", err)
	}
	if !gotAuth {
		t.Errorf("basic credentials not sent")
	}
	if gotID == "" {
		t.Errorf("missing X-Request-Id")
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q", gotCT)
	}
}

func TestWithTimeout_OrderIndependentAndLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`{"code":0,"msg":"OK"}`))
	}))
	defer srv.Close()

	shared := &http.Client{}
	c, err := api.NewClient(srv.URL, api.WithTimeout(50*time.Millisecond), api.WithHTTPClient(shared))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	start := time.Now()
	if _, err := c.ListTunnels(context.Background()); !api.IsTransport(err) {
		t.Fatalf("expected a transport error from the timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout given before WithHTTPClient was not applied")
	}
	if shared.Timeout != 0 {
		t.Errorf("caller's http.Client was modified: %v", shared.Timeout)
	}
	if http.DefaultClient.Timeout != 0 {
		t.Errorf("http.DefaultClient was modified: %v", http.DefaultClient.Timeout)
	}
}

func TestClient_NoRetryOnFailure(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.FailStatus(http.MethodGet, api.PathTunnels, http.StatusServiceUnavailable)
	c, _ := api.NewClient(fake.URL())
	if _, err := c.ListTunnels(context.Background()); !api.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if n := fake.CallCount(); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}

func TestEndpoints_AgainstFakeAPI(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	c, _ := api.NewClient(fake.URL())

	if err := c.CreateTunnel(ctx, "alpha"); err != nil {
		t.Fatalf("CreateTunnel: %v", err)
	}
	tunnels, err := c.ListTunnels(ctx)
	if err != nil || len(tunnels) != 1 {
		t.Fatalf("ListTunnels: %v %+v", err, tunnels)
	}
	tun := tunnels[0]
	if tun.Token != "" {
		t.Fatalf("list leaked token")
	}

	tun.Name = "alpha-2"
	if err := c.UpdateTunnel(ctx, tun); err != nil {
		t.Fatalf("UpdateTunnel: %v", err)
	}

	secret, err := c.RevealToken(ctx, tun.ID)
	if err != nil || secret == "" {
		t.Fatalf("RevealToken: %q %v", secret, err)
	}
	if err := c.RotateToken(ctx, tun.ID); err != nil {
		t.Fatalf("RotateToken: %v", err)
	}

	r := model.Route{TunnelID: tun.ID, Hostname: "a.example.com", Prefix: "/x", Target: "127.0.0.1:8080", Protocol: model.ProtocolHTTP}
	if err := c.CreateRoute(ctx, r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	routes, err := c.ListRoutesByTunnel(ctx, tun.ID)
	if err != nil || len(routes) != 1 || routes[0].ID == "" {
		t.Fatalf("ListRoutesByTunnel: %v %+v", err, routes)
	}
	routes[0].Target = "127.0.0.1:9090"
	if err := c.UpdateRoute(ctx, routes[0]); err != nil {
		t.Fatalf("UpdateRoute: %v", err)
	}
	if err := c.DeleteRoute(ctx, routes[0].ID); err != nil {
		t.Fatalf("DeleteRoute: %v", err)
	}
	if err := c.DeleteTunnel(ctx, tun.ID); err != nil {
		t.Fatalf("DeleteTunnel: %v", err)
	}
	if err := c.DeleteTunnel(ctx, tun.ID); !api.IsApplication(err) {
		t.Fatalf("second delete should be an application error, got %v", err)
	}

	want := []string{
		"POST /api/tunnels",
		"GET /api/tunnels",
		"PUT /api/tunnels/" + tun.ID,
		"GET /api/token/" + tun.ID,
		"POST /api/tunnels/" + tun.ID + "/refreshtoken",
		"POST /api/routes",
		"GET /api/routes/" + tun.ID,
		"PUT /api/routes/" + routes[0].ID,
		"DELETE /api/routes/" + routes[0].ID,
		"DELETE /api/tunnels/" + tun.ID,
		"DELETE /api/tunnels/" + tun.ID,
	}
	calls := fake.Calls()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", calls)
	}
	for i := range want {
		if calls[i].String() != want[i] {
			t.Errorf("call %d = %s, want %s", i, calls[i], want[i])
		}
	}
}
