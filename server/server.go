// Package server exposes the player's control endpoint over HTTP.
package server

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/koding/websocketproxy"
	"golang.ngrok.com/ngrok"
	ngrokconfig "golang.ngrok.com/ngrok/config"
)

// Listen opens a public ngrok tunnel when a token is given, otherwise a plain
// TCP listener on addr.
func Listen(ctx context.Context, addr, ngrokToken string) (net.Listener, error) {
	if ngrokToken != "" {
		return ngrok.Listen(ctx,
			ngrokconfig.HTTPEndpoint(),
			ngrok.WithAuthtoken(ngrokToken),
		)
	}
	return net.Listen("tcp4", addr)
}

// ServiceURL is the base URL controllers should use to reach l.
func ServiceURL(l net.Listener, override string) string {
	if tun, ok := l.(ngrok.Tunnel); ok {
		return tun.URL()
	}
	if override != "" {
		return override
	}
	return "http://" + l.Addr().String()
}

// WebsocketURL rewrites an http(s) service URL to ws(s) and appends path.
func WebsocketURL(serviceURL, path string) string {
	u := strings.Replace(serviceURL, "https:", "wss:", 1)
	u = strings.Replace(u, "http:", "ws:", 1)
	return strings.TrimSuffix(u, "/") + path
}

// ProxyRouter forwards websocket connections to an external messaging router,
// for controllers that talk to the router rather than to this player.
func ProxyRouter(target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	upgrader := *websocketproxy.DefaultUpgrader
	upgrader.CheckOrigin = func(r *http.Request) bool {
		return true
	}
	proxy := websocketproxy.NewProxy(u)
	proxy.Upgrader = &upgrader
	return proxy, nil
}
