package httpadapter

import (
	"context"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

func TestCORSMiddleware_Headers(t *testing.T) {
	cases := []struct {
		origin string
		want   string
		vary   string
	}{
		{"", "*", ""},
		{"https://forge.example", "https://forge.example", "Origin"},
	}
	for _, tc := range cases {
		ctx := &app.RequestContext{}
		ctx.Request.Header.SetMethod(consts.MethodGet)
		CORSMiddleware(tc.origin)(context.Background(), ctx)

		if got := string(ctx.Response.Header.Peek("Access-Control-Allow-Origin")); got != tc.want {
			t.Fatalf("allow-origin mismatch: got=%q want=%q", got, tc.want)
		}
		if got := string(ctx.Response.Header.Peek("Access-Control-Allow-Headers")); got != corsAllowHeaders {
			t.Fatalf("allow-headers mismatch: got=%q want=%q", got, corsAllowHeaders)
		}
		if got := string(ctx.Response.Header.Peek("Vary")); got != tc.vary {
			t.Fatalf("vary mismatch: got=%q want=%q", got, tc.vary)
		}
	}
}

func TestCORSMiddleware_PreflightShortCircuits(t *testing.T) {
	ctx := &app.RequestContext{}
	ctx.Request.Header.SetMethod(consts.MethodOptions)
	CORSMiddleware("")(context.Background(), ctx)

	if got, want := ctx.Response.StatusCode(), consts.StatusNoContent; got != want {
		t.Fatalf("status mismatch: got=%d want=%d", got, want)
	}
	if !ctx.IsAborted() {
		t.Fatalf("expected preflight to abort the chain")
	}
}
