package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/walkbot/core/logger"
)

type storeContext struct {
	tele.Context
	store map[string]interface{}
}

func newStoreContext() *storeContext {
	return &storeContext{store: map[string]interface{}{}}
}

func (c *storeContext) Update() tele.Update               { return tele.Update{ID: 41} }
func (c *storeContext) Sender() *tele.User                { return &tele.User{ID: 7} }
func (c *storeContext) Chat() *tele.Chat                  { return &tele.Chat{ID: -100} }
func (c *storeContext) Get(key string) interface{}        { return c.store[key] }
func (c *storeContext) Set(key string, value interface{}) { c.store[key] = value }

func TestBuildContextCachesMeta(t *testing.T) {
	c := newStoreContext()
	ctx := BuildContext(c)
	meta := logger.MetaFrom(ctx)
	require.Equal(t, 41, meta.UpdateID)
	require.Equal(t, int64(7), meta.UserID)
	require.Equal(t, int64(-100), meta.ChatID)
	require.NotEmpty(t, meta.RID)

	require.Equal(t, ctx, BuildContext(c))
}

func TestNewUpdateContextKeepsRID(t *testing.T) {
	c := newStoreContext()
	first := logger.MetaFrom(NewUpdateContext(c)).RID
	second := logger.MetaFrom(NewUpdateContext(c)).RID
	require.Equal(t, first, second)
}

func TestWithHandlerTagsStoredContext(t *testing.T) {
	c := newStoreContext()
	WithHandler(c, "cmd.new")
	require.Equal(t, "cmd.new", logger.MetaFrom(BuildContext(c)).Handler)

	require.Equal(t, context.Background(), BuildContext(nil))
}
