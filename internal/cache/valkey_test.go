package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

func TestValkeyMissingKeyIsMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	c := newValkey(client, time.Minute)

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "route-risk:search")).
		Return(mock.Result(mock.ValkeyNil()))

	if _, err := c.Get(context.Background(), "search"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected ErrMiss, got %v", err)
	}
}

func TestValkeySetThenGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	c := newValkey(client, 90*time.Second)
	ctx := context.Background()

	var stored string
	client.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			if len(cmd) != 5 || cmd[0] != "SET" || cmd[1] != "route-risk:search" || cmd[3] != "EX" || cmd[4] != "90" {
				return false
			}
			stored = cmd[2]
			return true
		}, "SET route-risk:search <entry> EX 90")).
		Return(mock.Result(mock.ValkeyString("OK")))

	if err := c.Set(ctx, "search", []byte(`{"results":[]}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if stored == "" {
		t.Fatal("expected an entry to be written")
	}

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "route-risk:search")).
		Return(mock.Result(mock.ValkeyString(stored)))

	entry, err := c.Get(ctx, "search")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if entry.Key != "search" || string(entry.Value) != `{"results":[]}` {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.InsertedAt.IsZero() {
		t.Fatal("expected insertion time to be recorded")
	}
}

func TestValkeyErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mock.NewClient(ctrl)
	c := newValkey(client, time.Minute)
	ctx := context.Background()

	boom := errors.New("connection reset")
	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "route-risk:down")).
		Return(mock.ErrorResult(boom))
	if _, err := c.Get(ctx, "down"); !errors.Is(err, boom) || errors.Is(err, ErrMiss) {
		t.Fatalf("expected server error to surface, got %v", err)
	}

	client.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "route-risk:corrupt")).
		Return(mock.Result(mock.ValkeyString("not json")))
	if _, err := c.Get(ctx, "corrupt"); err == nil || errors.Is(err, ErrMiss) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
