package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestDocTextCacheRoundTrip(t *testing.T) {
	redisSrv := miniredis.RunT(t)
	c := NewRedisDocTextCache(redisSrv.Addr(), "", time.Minute)
	ctx := context.Background()

	if _, ok, err := c.GetText(ctx, "u1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.SetText(ctx, "u1", "extracted text"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.GetText(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != "extracted text" {
		t.Fatalf("text = %q", got)
	}
	if err := c.DeleteText(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.GetText(ctx, "u1"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestDocTextCacheExpires(t *testing.T) {
	redisSrv := miniredis.RunT(t)
	c := NewRedisDocTextCache(redisSrv.Addr(), "", time.Second)
	ctx := context.Background()

	if err := c.SetText(ctx, "u1", "text"); err != nil {
		t.Fatalf("set: %v", err)
	}
	redisSrv.FastForward(2 * time.Second)
	if _, ok, _ := c.GetText(ctx, "u1"); ok {
		t.Fatalf("expected entry to expire")
	}
}
